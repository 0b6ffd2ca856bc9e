package plants

import "context"

// Slot is a single named durable blob holding the whole profile collection.
// Write must replace the content atomically: a concurrent reader sees either
// the old or the new blob, never a mix.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// ImageStore keeps analyzed images and returns a reference URL for records.
type ImageStore interface {
	PutImage(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}
