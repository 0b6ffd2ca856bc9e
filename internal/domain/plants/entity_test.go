package plants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssuesFound(t *testing.T) {
	tests := []struct {
		name         string
		disease      string
		pests        int
		deficiencies int
		want         bool
	}{
		{name: "n/a", disease: NotApplicable, want: false},
		{name: "blank", disease: "", want: false},
		{name: "whitespace", disease: "   ", want: false},
		{name: "lowercase n/a", disease: "n/a", want: false},
		{name: "disease", disease: "Leaf Spot", want: true},
		{name: "pest only", disease: NotApplicable, pests: 1, want: true},
		{name: "deficiency only", disease: "", deficiencies: 2, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IssuesFound(tt.disease, tt.pests, tt.deficiencies))
		})
	}
}

func TestAnalysisRecord_HasIssues(t *testing.T) {
	r := AnalysisRecord{DiseaseName: ""}
	assert.False(t, r.HasIssues())

	r.PestIdentification = []Finding{{Name: "Thrips"}}
	assert.True(t, r.HasIssues())
}
