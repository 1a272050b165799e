package providers

import (
	"context"
	"io"
)

// ImageStorage stores procedure pictures in a public bucket.
type ImageStorage interface {
	// Upload stores the object under name and returns its public URL
	Upload(ctx context.Context, name string, body io.Reader) (string, error)

	// PublicURL resolves a bucket path to a public URL
	PublicURL(path string) string
}
