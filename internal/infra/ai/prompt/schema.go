package prompt

import (
	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// RequiredFields are the keys every response object must carry.
var RequiredFields = []string{
	"plantName", "isHealthy", "diseaseName", "description", "treatmentSuggestions", "benefits",
	"confidenceScore", "preventativeCareTips", "progressAssessment", "comparativeAnalysis",
	"pestIdentification", "nutrientDeficiencies",
}

func stringList(desc string) *ai.Schema {
	return &ai.Schema{Type: "array", Items: &ai.Schema{Type: "string"}, Description: desc}
}

func findingSchema(nameDesc, descDesc, remedyDesc string) *ai.Schema {
	return &ai.Schema{
		Type: "object",
		Properties: map[string]*ai.Schema{
			"name":        {Type: "string", Description: nameDesc},
			"description": {Type: "string", Description: descDesc},
			"remedy":      stringList(remedyDesc),
		},
		Required: []string{"name", "description", "remedy"},
	}
}

// Schema declares the structured output shape requested from the provider.
// A fresh value is returned on each call so adapters may convert it freely.
func Schema() *ai.Schema {
	progress := make([]string, 0, len(plants.ProgressValues))
	for _, p := range plants.ProgressValues {
		progress = append(progress, string(p))
	}
	return &ai.Schema{
		Type: "object",
		Properties: map[string]*ai.Schema{
			"plantName":            {Type: "string", Description: "The common name of the plant."},
			"isHealthy":            {Type: "boolean", Description: "Is the plant healthy overall? (Considering diseases, pests, and deficiencies)."},
			"diseaseName":          {Type: "string", Description: "Disease name or 'N/A' if no disease."},
			"description":          {Type: "string", Description: "Detailed description of overall health, disease, pests, or deficiencies."},
			"treatmentSuggestions": stringList("List of treatments for the disease. Empty if healthy."),
			"benefits":             stringList("List of plant benefits or medicinal uses."),
			"confidenceScore":      {Type: "integer", Description: "Confidence score (0-100) of the overall analysis."},
			"preventativeCareTips": stringList("Tips for preventative care."),
			"progressAssessment": {
				Type:        "string",
				Enum:        progress,
				Description: "Assessment of progress compared to previous analysis. 'N/A' for first analysis.",
			},
			"comparativeAnalysis": {Type: "string", Description: "A detailed text comparing the current state to the previous one, explaining the changes. 'N/A' for first analysis."},
			"pestIdentification": {
				Type:        "array",
				Description: "List of identified pests. Empty if none.",
				Items: findingSchema("Common name of the pest.",
					"Description of the pest and the damage it causes.",
					"Steps to treat the pest infestation."),
			},
			"nutrientDeficiencies": {
				Type:        "array",
				Description: "List of identified nutrient deficiencies. Empty if none.",
				Items: findingSchema("Name of the deficient nutrient (e.g., 'Nitrogen').",
					"Description of the symptoms of the deficiency.",
					"Steps to correct the nutrient deficiency."),
			},
		},
		Required: append([]string{}, RequiredFields...),
	}
}
