package ai

import (
	"context"
	"encoding/json"
)

// Request is the text side of an inference call.
type Request struct {
	System string
	User   string
	Schema *Schema
}

// Input bundles the image with the request.
type Input struct {
	Image    []byte
	MIMEType string
	Request  Request
}

// FragmentStream yields text fragments of a structured response. Recv returns
// io.EOF after the last fragment. Close releases the underlying transport.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

type Client interface {
	OpenStream(ctx context.Context, in Input) (FragmentStream, error)
}

// Schema is a provider neutral description of the structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// JSON renders the schema as a JSON Schema document.
func (s *Schema) JSON() (json.RawMessage, error) {
	return json.Marshal(s)
}
