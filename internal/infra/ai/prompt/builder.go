package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// excerptRunes bounds the previous description quoted in follow-up prompts.
const excerptRunes = 150

// GetSystemPrompt is the fixed diagnostic instruction block.
func GetSystemPrompt() string {
	return `You are an expert botanist and plant pathologist. Your analysis must be comprehensive. Analyze the provided image of a plant.
- First, identify the plant's common name.
- Then, conduct a full diagnostic: check for diseases, pest infestations, and nutrient deficiencies.
- Your final 'isHealthy' status must be true ONLY if there are no diseases, no pests, and no nutrient deficiencies.
- If no disease is found, set 'diseaseName' to 'N/A'.
- For each issue found (disease, pest, or deficiency), provide its name, a description, and specific remedy suggestions.
- If the plant is completely healthy, confirm this and describe characteristics of a healthy specimen.
- Provide common benefits/medicinal uses, a confidence score (integer 0-100), and general preventative care tips for this plant species.
- Output a single JSON object that follows the response schema. No markdown, no commentary.`
}

// Build turns the optional growing context and the plant's previous record into
// an inference request. It is pure: identical inputs give identical bytes.
func Build(env *plants.EnvironmentalData, previous *plants.AnalysisRecord) ai.Request {
	var b strings.Builder
	b.WriteString("Analyze the attached plant photo.")

	if env != nil {
		writeEnvironment(&b, env)
	}
	if previous != nil {
		writeComparison(&b, previous)
	} else {
		b.WriteString("\n\nThis is the first analysis for this plant. Set 'progressAssessment' and 'comparativeAnalysis' to 'N/A'.")
		b.WriteString(" Also ensure 'pestIdentification' and 'nutrientDeficiencies' are empty arrays if none are found.")
	}
	b.WriteString("\n\nProvide your complete response in the requested JSON format.")

	return ai.Request{
		System: GetSystemPrompt(),
		User:   b.String(),
		Schema: Schema(),
	}
}

func writeEnvironment(b *strings.Builder, env *plants.EnvironmentalData) {
	b.WriteString("\n\nConsider the following environmental context provided by the user:")
	if loc := env.Location; loc != nil {
		fmt.Fprintf(b, "\n- User's Location: Latitude %s, Longitude %s.", formatCoord(loc.Latitude), formatCoord(loc.Longitude))
		b.WriteString("\n- Use this location to infer local weather patterns, common regional pests/diseases, and soil type. Factor this heavily into your diagnosis and recommendations. Mention how the location impacts your analysis.")
	}
	fmt.Fprintf(b, "\n- Sunlight Exposure: %s", orDefault(env.Sunlight, "Not provided"))
	fmt.Fprintf(b, "\n- Watering Frequency: %s", orDefault(env.Watering, "Not provided"))
	fmt.Fprintf(b, "\n- Additional Notes: %s", orDefault(env.Notes, "None"))
	b.WriteString("\nIncorporate how these factors might be affecting the plant's health in your analysis.")
	if env.OrganicPreference {
		b.WriteString("\n- The user has requested organic and sustainable remedies. Prioritize these solutions.")
	}
}

func writeComparison(b *strings.Builder, prev *plants.AnalysisRecord) {
	fmt.Fprintf(b, "\n\nThis is a follow-up analysis. The previous analysis on %s concluded:", prev.Date.UTC().Format("2006-01-02"))
	fmt.Fprintf(b, "\n- Health Status: %s", HealthSummary(prev))
	fmt.Fprintf(b, "\n- Disease: %s", orDefault(prev.DiseaseName, plants.NotApplicable))
	fmt.Fprintf(b, "\n- Pests: %s", findingNames(prev.PestIdentification))
	fmt.Fprintf(b, "\n- Deficiencies: %s", findingNames(prev.NutrientDeficiencies))
	fmt.Fprintf(b, "\n- Key finding from description: %q", excerpt(prev.Description, excerptRunes))
	b.WriteString("\n\nBased on the new image, perform a comparative analysis.")
	b.WriteString("\n- Set 'progressAssessment' to exactly one of 'Improved', 'Worsened', or 'Unchanged'.")
	b.WriteString("\n- Provide a 'comparativeAnalysis' text explaining the specific changes you observe since the previous analysis.")
}

// HealthSummary is the one-line verdict of a record.
func HealthSummary(r *plants.AnalysisRecord) string {
	if r.IsHealthy {
		return "Healthy"
	}
	return "Issues detected"
}

func findingNames(fs []plants.Finding) string {
	if len(fs) == 0 {
		return "none"
	}
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
