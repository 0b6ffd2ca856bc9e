package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

func TestParsePayload_Valid(t *testing.T) {
	p, err := ParsePayload(encode(worsenedPayload()))
	require.NoError(t, err)

	assert.False(t, p.IsHealthy)
	assert.Equal(t, "Downy Mildew", p.DiseaseName)
	assert.Equal(t, plants.ProgressWorsened, p.ProgressAssessment)
	require.Len(t, p.PestIdentification, 1)
	assert.Equal(t, plants.Finding{Name: "Aphids", Description: "Small green insects on stems.", Remedy: []string{"Insecticidal soap"}}, p.PestIdentification[0])
	assert.Empty(t, p.NutrientDeficiencies)
}

func TestParsePayload_Fenced(t *testing.T) {
	p, err := ParsePayload("```json\n" + encode(healthyPayload()) + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Sweet Basil", p.PlantName)
}

func TestParsePayload_DeficiencyOnlyIsUnhealthy(t *testing.T) {
	m := healthyPayload()
	m["isHealthy"] = false
	m["nutrientDeficiencies"] = []any{map[string]any{
		"name": "Nitrogen", "description": "Pale lower leaves.", "remedy": []string{"Balanced fertilizer"},
	}}
	p, err := ParsePayload(encode(m))
	require.NoError(t, err)
	assert.True(t, p.NutrientDeficiencies[0].Name == "Nitrogen")
}

func TestParsePayload_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		raw    string
	}{
		{name: "empty", raw: "   "},
		{name: "not json", raw: "The plant looks fine."},
		{name: "array", raw: "[]"},
		{name: "missing field", mutate: func(m map[string]any) { delete(m, "benefits") }},
		{name: "null field", mutate: func(m map[string]any) { m["description"] = nil }},
		{name: "score above range", mutate: func(m map[string]any) { m["confidenceScore"] = 101 }},
		{name: "score below range", mutate: func(m map[string]any) { m["confidenceScore"] = -1 }},
		{name: "fractional score", mutate: func(m map[string]any) { m["confidenceScore"] = 91.5 }},
		{name: "quoted score", mutate: func(m map[string]any) { m["confidenceScore"] = "91" }},
		{name: "unknown progress", mutate: func(m map[string]any) { m["progressAssessment"] = "Better" }},
		{name: "progress without comparison", mutate: func(m map[string]any) { m["progressAssessment"] = "Improved" }},
		{name: "comparison without progress", mutate: func(m map[string]any) { m["comparativeAnalysis"] = "Greener than before." }},
		{name: "healthy with disease", mutate: func(m map[string]any) { m["diseaseName"] = "Leaf Blight" }},
		{name: "healthy with pest", mutate: func(m map[string]any) {
			m["pestIdentification"] = []any{map[string]any{"name": "Thrips", "description": "Silver streaks.", "remedy": []string{"Neem oil"}}}
		}},
		{name: "unhealthy with nothing found", mutate: func(m map[string]any) { m["isHealthy"] = false }},
		{name: "unhealthy with blank disease", mutate: func(m map[string]any) {
			m["isHealthy"] = false
			m["diseaseName"] = ""
		}},
		{name: "unhealthy with whitespace disease", mutate: func(m map[string]any) {
			m["isHealthy"] = false
			m["diseaseName"] = "  "
		}},
		{name: "finding missing remedy", mutate: func(m map[string]any) {
			m["isHealthy"] = false
			m["pestIdentification"] = []any{map[string]any{"name": "Thrips", "description": "Silver streaks."}}
		}},
		{name: "wrong type", mutate: func(m map[string]any) { m["isHealthy"] = "yes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if tt.mutate != nil {
				m := healthyPayload()
				tt.mutate(m)
				raw = encode(m)
			}
			_, err := ParsePayload(raw)
			assert.ErrorIs(t, err, ai.ErrSchemaViolation)
		})
	}
}

func TestParsePayload_BlankDiseaseStoredAsNA(t *testing.T) {
	m := healthyPayload()
	m["diseaseName"] = ""

	p, err := ParsePayload(encode(m))
	require.NoError(t, err)
	assert.True(t, p.IsHealthy)
	assert.Equal(t, plants.NotApplicable, p.DiseaseName)
}

func TestParsePayload_ReportsMissingNames(t *testing.T) {
	m := healthyPayload()
	delete(m, "plantName")
	delete(m, "nutrientDeficiencies")

	_, err := ParsePayload(encode(m))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "plantName"))
	assert.True(t, strings.Contains(err.Error(), "nutrientDeficiencies"))
}

func TestPayload_RecordIsDetached(t *testing.T) {
	p, err := ParsePayload(encode(worsenedPayload()))
	require.NoError(t, err)

	r := p.Record("rec-1", fixedDate(), "blob:x")
	r.TreatmentSuggestions[0] = "changed"
	r.PestIdentification[0].Remedy[0] = "changed"

	assert.Equal(t, "Remove infected leaves", p.TreatmentSuggestions[0])
	assert.Equal(t, "Insecticidal soap", p.PestIdentification[0].Remedy[0])
	assert.Equal(t, "rec-1", r.ID)
	assert.Equal(t, "blob:x", r.ImageURL)
}
