package analysis

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
)

// fakeAI replays scripted fragment sequences, one per OpenStream call.
type fakeAI struct {
	mu        sync.Mutex
	scripts   [][]string
	openErr   error
	recvErr   error
	block     bool
	inputs    []ai.Input
	closed    int
	started   chan struct{}
	startOnce sync.Once
}

func (f *fakeAI) OpenStream(ctx context.Context, in ai.Input) (ai.FragmentStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.openErr != nil {
		return nil, f.openErr
	}
	var frags []string
	if len(f.scripts) > 0 {
		frags, f.scripts = f.scripts[0], f.scripts[1:]
	}
	return &fakeStream{ctx: ctx, frags: frags, parent: f}, nil
}

func (f *fakeAI) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeStream struct {
	ctx    context.Context
	frags  []string
	i      int
	parent *fakeAI
}

func (s *fakeStream) Recv() (string, error) {
	if s.i < len(s.frags) {
		f := s.frags[s.i]
		s.i++
		return f, nil
	}
	if s.parent.block {
		if s.parent.started != nil {
			s.parent.startOnce.Do(func() { close(s.parent.started) })
		}
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.parent.recvErr != nil {
		return "", s.parent.recvErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.closed++
	return nil
}

// split cuts s into chunks of n bytes, ignoring JSON structure on purpose.
func split(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func healthyPayload() map[string]any {
	return map[string]any{
		"plantName":            "Sweet Basil",
		"isHealthy":            true,
		"diseaseName":          "N/A",
		"description":          "Vibrant green leaves with no visible lesions.",
		"treatmentSuggestions": []string{},
		"benefits":             []string{"Culinary herb", "Rich in antioxidants"},
		"confidenceScore":      91,
		"preventativeCareTips": []string{"Pinch flower buds", "Water in the morning"},
		"progressAssessment":   "N/A",
		"comparativeAnalysis":  "N/A",
		"pestIdentification":   []any{},
		"nutrientDeficiencies": []any{},
	}
}

func worsenedPayload() map[string]any {
	p := healthyPayload()
	p["isHealthy"] = false
	p["diseaseName"] = "Downy Mildew"
	p["description"] = "Yellow patches with grey fuzz under the leaves."
	p["treatmentSuggestions"] = []string{"Remove infected leaves", "Apply copper fungicide"}
	p["confidenceScore"] = 78
	p["progressAssessment"] = "Worsened"
	p["comparativeAnalysis"] = "New lesions appeared since the last photo."
	p["pestIdentification"] = []any{map[string]any{
		"name": "Aphids", "description": "Small green insects on stems.", "remedy": []string{"Insecticidal soap"},
	}}
	return p
}

func encode(p map[string]any) string {
	b, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func testImage() Image {
	return Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, MIMEType: "image/jpeg", URL: "blob:local/basil.jpg"}
}
