package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// Payload is the validated part of a record produced by the inference service.
// Identity, date and image reference are added by the Service.
type Payload struct {
	PlantName            string
	IsHealthy            bool
	DiseaseName          string
	Description          string
	TreatmentSuggestions []string
	Benefits             []string
	ConfidenceScore      int
	PreventativeCareTips []string
	ProgressAssessment   plants.ProgressAssessment
	ComparativeAnalysis  string
	PestIdentification   []plants.Finding
	NutrientDeficiencies []plants.Finding
}

// Record completes the payload into an AnalysisRecord.
func (p *Payload) Record(id string, date time.Time, imageURL string) plants.AnalysisRecord {
	r := plants.AnalysisRecord{
		ID:                   id,
		Date:                 date,
		ImageURL:             imageURL,
		PlantName:            p.PlantName,
		IsHealthy:            p.IsHealthy,
		DiseaseName:          p.DiseaseName,
		Description:          p.Description,
		TreatmentSuggestions: p.TreatmentSuggestions,
		Benefits:             p.Benefits,
		ConfidenceScore:      p.ConfidenceScore,
		PreventativeCareTips: p.PreventativeCareTips,
		ProgressAssessment:   p.ProgressAssessment,
		ComparativeAnalysis:  p.ComparativeAnalysis,
		PestIdentification:   p.PestIdentification,
		NutrientDeficiencies: p.NutrientDeficiencies,
	}
	return r.Clone()
}

// wirePayload mirrors the response schema with pointers so that absent and
// null fields can be told apart from zero values.
type wirePayload struct {
	PlantName            *string          `json:"plantName"`
	IsHealthy            *bool            `json:"isHealthy"`
	DiseaseName          *string          `json:"diseaseName"`
	Description          *string          `json:"description"`
	TreatmentSuggestions *[]string        `json:"treatmentSuggestions"`
	Benefits             *[]string        `json:"benefits"`
	ConfidenceScore      *json.RawMessage `json:"confidenceScore"`
	PreventativeCareTips *[]string        `json:"preventativeCareTips"`
	ProgressAssessment   *string          `json:"progressAssessment"`
	ComparativeAnalysis  *string          `json:"comparativeAnalysis"`
	PestIdentification   *[]wireFinding   `json:"pestIdentification"`
	NutrientDeficiencies *[]wireFinding   `json:"nutrientDeficiencies"`
}

type wireFinding struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Remedy      *[]string `json:"remedy"`
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ai.ErrSchemaViolation, fmt.Sprintf(format, args...))
}

// ParsePayload parses the full response text and applies every validation
// rule. Any failure is an ai.ErrSchemaViolation; nothing is coerced.
func ParsePayload(text string) (*Payload, error) {
	text = stripFence(text)
	if text == "" {
		return nil, violation("empty response")
	}

	var w wirePayload
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return nil, violation("response is not a JSON object: %v", err)
	}

	var missing []string
	need := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	need("plantName", w.PlantName != nil)
	need("isHealthy", w.IsHealthy != nil)
	need("diseaseName", w.DiseaseName != nil)
	need("description", w.Description != nil)
	need("treatmentSuggestions", w.TreatmentSuggestions != nil)
	need("benefits", w.Benefits != nil)
	need("confidenceScore", w.ConfidenceScore != nil)
	need("preventativeCareTips", w.PreventativeCareTips != nil)
	need("progressAssessment", w.ProgressAssessment != nil)
	need("comparativeAnalysis", w.ComparativeAnalysis != nil)
	need("pestIdentification", w.PestIdentification != nil)
	need("nutrientDeficiencies", w.NutrientDeficiencies != nil)
	if len(missing) > 0 {
		return nil, violation("missing required fields: %s", strings.Join(missing, ", "))
	}

	score, err := parseScore(*w.ConfidenceScore)
	if err != nil {
		return nil, err
	}
	pests, err := convertFindings("pestIdentification", *w.PestIdentification)
	if err != nil {
		return nil, err
	}
	deficiencies, err := convertFindings("nutrientDeficiencies", *w.NutrientDeficiencies)
	if err != nil {
		return nil, err
	}

	p := &Payload{
		PlantName:            *w.PlantName,
		IsHealthy:            *w.IsHealthy,
		DiseaseName:          diseaseOrNA(*w.DiseaseName),
		Description:          *w.Description,
		TreatmentSuggestions: *w.TreatmentSuggestions,
		Benefits:             *w.Benefits,
		ConfidenceScore:      score,
		PreventativeCareTips: *w.PreventativeCareTips,
		ProgressAssessment:   plants.ProgressAssessment(*w.ProgressAssessment),
		ComparativeAnalysis:  *w.ComparativeAnalysis,
		PestIdentification:   pests,
		NutrientDeficiencies: deficiencies,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the semantic rules that hold for every record.
func (p *Payload) Validate() error {
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 100 {
		return violation("confidenceScore %d outside [0,100]", p.ConfidenceScore)
	}
	if !p.ProgressAssessment.Valid() {
		return violation("progressAssessment %q is not one of Improved, Worsened, Unchanged, N/A", p.ProgressAssessment)
	}
	firstRecord := p.ProgressAssessment == plants.ProgressNA
	if firstRecord != (p.ComparativeAnalysis == plants.NotApplicable) {
		return violation("progressAssessment %q and comparativeAnalysis must both be N/A or both be set", p.ProgressAssessment)
	}
	issues := plants.IssuesFound(p.DiseaseName, len(p.PestIdentification), len(p.NutrientDeficiencies))
	if p.IsHealthy && issues {
		return violation("isHealthy is true but disease %q, %d pests and %d deficiencies were reported",
			p.DiseaseName, len(p.PestIdentification), len(p.NutrientDeficiencies))
	}
	if !p.IsHealthy && !issues {
		return violation("isHealthy is false but no disease, pest or deficiency was reported")
	}
	return nil
}

// diseaseOrNA folds a blank disease name into N/A.
func diseaseOrNA(name string) string {
	if strings.TrimSpace(name) == "" {
		return plants.NotApplicable
	}
	return name
}

func parseScore(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, violation("confidenceScore %s is not a number", s)
	}
	if f != math.Trunc(f) {
		return 0, violation("confidenceScore %s is not an integer", s)
	}
	if f < 0 || f > 100 {
		return 0, violation("confidenceScore %s outside [0,100]", s)
	}
	return int(f), nil
}

func convertFindings(field string, in []wireFinding) ([]plants.Finding, error) {
	out := make([]plants.Finding, 0, len(in))
	for i, f := range in {
		if f.Name == nil || f.Description == nil || f.Remedy == nil {
			return nil, violation("%s[%d] requires name, description and remedy", field, i)
		}
		out = append(out, plants.Finding{Name: *f.Name, Description: *f.Description, Remedy: *f.Remedy})
	}
	return out, nil
}

// stripFence removes a surrounding ```json fence some models emit.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
