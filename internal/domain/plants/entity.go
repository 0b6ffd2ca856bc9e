package plants

import (
	"strings"
	"time"
)

// NotApplicable is the sentinel used by the inference service for absent values.
const NotApplicable = "N/A"

// ProgressAssessment classifies the health trend against the previous record.
type ProgressAssessment string

const (
	ProgressImproved  ProgressAssessment = "Improved"
	ProgressWorsened  ProgressAssessment = "Worsened"
	ProgressUnchanged ProgressAssessment = "Unchanged"
	ProgressNA        ProgressAssessment = NotApplicable
)

// ProgressValues lists every accepted assessment, in schema order.
var ProgressValues = []ProgressAssessment{ProgressImproved, ProgressWorsened, ProgressUnchanged, ProgressNA}

func (p ProgressAssessment) Valid() bool {
	for _, v := range ProgressValues {
		if p == v {
			return true
		}
	}
	return false
}

// Finding is a single pest or nutrient deficiency with its remedy steps.
type Finding struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Remedy      []string `json:"remedy"`
}

// AnalysisRecord is one completed diagnosis of a plant. Records are immutable
// once appended to a profile.
type AnalysisRecord struct {
	ID                   string             `json:"id"`
	Date                 time.Time          `json:"date"`
	ImageURL             string             `json:"imageUrl"`
	PlantName            string             `json:"plantName"`
	IsHealthy            bool               `json:"isHealthy"`
	DiseaseName          string             `json:"diseaseName"`
	Description          string             `json:"description"`
	TreatmentSuggestions []string           `json:"treatmentSuggestions"`
	Benefits             []string           `json:"benefits"`
	ConfidenceScore      int                `json:"confidenceScore"`
	PreventativeCareTips []string           `json:"preventativeCareTips"`
	ProgressAssessment   ProgressAssessment `json:"progressAssessment"`
	ComparativeAnalysis  string             `json:"comparativeAnalysis"`
	PestIdentification   []Finding          `json:"pestIdentification"`
	NutrientDeficiencies []Finding          `json:"nutrientDeficiencies"`
}

// HasIssues reports whether any disease, pest or deficiency was found.
func (r *AnalysisRecord) HasIssues() bool {
	return IssuesFound(r.DiseaseName, len(r.PestIdentification), len(r.NutrientDeficiencies))
}

// NamesDisease reports whether name identifies a disease. Blank and N/A do not.
func NamesDisease(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !strings.EqualFold(name, NotApplicable)
}

// IssuesFound is the health rule shared by records and inference payloads.
func IssuesFound(disease string, pests, deficiencies int) bool {
	return NamesDisease(disease) || pests > 0 || deficiencies > 0
}

// PlantProfile is the persistent identity of a plant and its analysis timeline,
// oldest record first.
type PlantProfile struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	AnalysisHistory []AnalysisRecord `json:"analysisHistory"`
}

// Latest returns the most recent record or nil for a plant without history.
func (p *PlantProfile) Latest() *AnalysisRecord {
	if len(p.AnalysisHistory) == 0 {
		return nil
	}
	r := p.AnalysisHistory[len(p.AnalysisHistory)-1].Clone()
	return &r
}

// Clone returns a deep copy so callers cannot reach stored slices.
func (p PlantProfile) Clone() PlantProfile {
	out := PlantProfile{ID: p.ID, Name: p.Name, AnalysisHistory: make([]AnalysisRecord, len(p.AnalysisHistory))}
	for i, r := range p.AnalysisHistory {
		out.AnalysisHistory[i] = r.Clone()
	}
	return out
}

func (r AnalysisRecord) Clone() AnalysisRecord {
	r.TreatmentSuggestions = cloneStrings(r.TreatmentSuggestions)
	r.Benefits = cloneStrings(r.Benefits)
	r.PreventativeCareTips = cloneStrings(r.PreventativeCareTips)
	r.PestIdentification = cloneFindings(r.PestIdentification)
	r.NutrientDeficiencies = cloneFindings(r.NutrientDeficiencies)
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneFindings(in []Finding) []Finding {
	if in == nil {
		return nil
	}
	out := make([]Finding, len(in))
	for i, f := range in {
		out[i] = Finding{Name: f.Name, Description: f.Description, Remedy: cloneStrings(f.Remedy)}
	}
	return out
}
