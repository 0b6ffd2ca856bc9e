package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventWriter emits server-sent events. Headers are only committed with the
// first event so that early failures still get a regular status code.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &eventWriter{w: w, flusher: f}, true
}

func (e *eventWriter) fragment(text string) {
	e.send("fragment", text)
}

func (e *eventWriter) send(event string, v any) {
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`"unencodable event"`)
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data)
	e.flusher.Flush()
}
