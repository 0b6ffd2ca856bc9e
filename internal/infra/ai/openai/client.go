package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
)

const maxTokens = 4096

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithBaseURL targets an OpenAI compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) OpenStream(ctx context.Context, in ai.Input) (ai.FragmentStream, error) {
	model := c.Model
	if model == "" {
		model = openai.GPT4o
	}
	schema, err := in.Request.Schema.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode response schema: %w", err)
	}

	dataURL := "data:" + in.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(in.Image)
	req := openai.ChatCompletionRequest{
		Model:  model,
		Stream: true,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "plant_analysis",
				Schema: schema,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.Request.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto}},
				{Type: openai.ChatMessagePartTypeText, Text: in.Request.User},
			}},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	stream, err := c.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return &fragmentStream{stream: stream}, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

type fragmentStream struct {
	stream *openai.ChatCompletionStream
}

func (s *fragmentStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", mapError(err)
		}
		// usage-only and role-only chunks carry no text
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *fragmentStream) Close() error {
	return s.stream.Close()
}

// mapError sorts provider failures into the inference error kinds.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return fromStatus(status, err)
}

func fromStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %v", ai.ErrInvalidImage, err)
	default:
		return fmt.Errorf("%w: %v", ai.ErrServiceUnavailable, err)
	}
}
