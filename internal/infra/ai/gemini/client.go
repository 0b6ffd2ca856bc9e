package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error { return c.client.Close() }

// OpenStream configures a model per call since the schema and system
// instruction live on the model value.
func (c *Client) OpenStream(ctx context.Context, in ai.Input) (ai.FragmentStream, error) {
	model := c.client.GenerativeModel(c.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = ToSchema(in.Request.Schema)
	if in.Request.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(in.Request.System))
	}

	sctx, cancel := context.WithCancel(ctx)
	iter := model.GenerateContentStream(sctx,
		genai.Blob{MIMEType: in.MIMEType, Data: in.Image},
		genai.Text(in.Request.User),
	)
	return &fragmentStream{iter: iter, cancel: cancel}, nil
}

type fragmentStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *fragmentStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", mapError(err)
		}
		if text := textOf(resp); text != "" {
			return text, nil
		}
	}
}

func (s *fragmentStream) Close() error {
	s.cancel()
	return nil
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// ToSchema converts the neutral schema into the genai representation.
func ToSchema(s *ai.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       ToSchema(s.Items),
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
		out.Enum = append([]string(nil), s.Enum...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = ToSchema(p)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "boolean":
		return genai.TypeBoolean
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "string":
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch {
		case gErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		case gErr.Code >= 400 && gErr.Code < 500:
			return fmt.Errorf("%w: %v", ai.ErrInvalidImage, err)
		}
		return fmt.Errorf("%w: %v", ai.ErrServiceUnavailable, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled:
			return context.Canceled
		case codes.ResourceExhausted:
			return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound:
			return fmt.Errorf("%w: %v", ai.ErrInvalidImage, err)
		}
	}
	return fmt.Errorf("%w: %v", ai.ErrServiceUnavailable, err)
}
