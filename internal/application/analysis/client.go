package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// Image is the photo under analysis. URL is used as the record's image
// reference when no ImageStore is configured.
type Image struct {
	Data     []byte
	MIMEType string
	URL      string
}

// Client drives one streamed inference call and validates what it assembles.
type Client struct {
	ai ai.Client
}

func NewClient(c ai.Client) *Client {
	return &Client{ai: c}
}

// Stream opens the inference stream. The caller must Close it.
func (c *Client) Stream(ctx context.Context, img Image, req ai.Request) (*Stream, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", plants.ErrInvalidArgument)
	}
	if strings.TrimSpace(img.MIMEType) == "" {
		return nil, fmt.Errorf("%w: image mime type is required", plants.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := c.ai.OpenStream(ctx, ai.Input{Image: img.Data, MIMEType: img.MIMEType, Request: req})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(err)
	}
	return &Stream{ctx: ctx, src: src}, nil
}

// Analyze drains a stream, passing each fragment to onFragment, and returns
// the validated payload.
func (c *Client) Analyze(ctx context.Context, img Image, req ai.Request, onFragment func(string)) (*Payload, error) {
	st, err := c.Stream(ctx, img, req)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	for {
		frag, err := st.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if onFragment != nil {
			onFragment(frag)
		}
	}
	return st.Payload()
}

// Stream is a finite, non-restartable sequence of response fragments.
// Fragments are only ever interpreted as part of the full concatenation.
type Stream struct {
	ctx       context.Context
	src       ai.FragmentStream
	buf       strings.Builder
	done      bool
	closeOnce sync.Once
	closeErr  error
}

// Next returns the next fragment, or io.EOF once the response is complete.
// A cancelled context stops consumption and is returned as is.
func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	frag, err := s.src.Recv()
	if errors.Is(err, io.EOF) {
		s.done = true
		return "", io.EOF
	}
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classify(err)
	}
	s.buf.WriteString(frag)
	return frag, nil
}

// Payload parses and validates the assembled response. It fails when the
// stream has not been read to the end.
func (s *Stream) Payload() (*Payload, error) {
	if !s.done {
		return nil, errors.New("analysis stream not fully consumed")
	}
	return ParsePayload(s.buf.String())
}

// Close releases the transport. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.src.Close() })
	return s.closeErr
}

func classify(err error) error {
	if ai.Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ai.ErrServiceUnavailable, err)
}
