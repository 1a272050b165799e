package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
)

// LocalBucket stores objects under root/<bucket>/ and serves them from publicBaseURL/<bucket>/
type LocalBucket struct {
	root          string
	bucket        string
	publicBaseURL string
}

var _ providers.ImageStorage = (*LocalBucket)(nil)

// NewLocalBucket creates the bucket directory if needed
func NewLocalBucket(root, bucket, publicBaseURL string) (*LocalBucket, error) {
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory %s: %w", dir, err)
	}
	return &LocalBucket{
		root:          root,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Upload writes body to the bucket and returns its public URL
func (b *LocalBucket) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	clean := path.Base(path.Clean("/" + name))
	if clean == "/" || clean == "." {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	target := filepath.Join(b.root, b.bucket, clean)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create object %s: %w", clean, err)
	}

	if _, err := io.Copy(f, readerWithContext(ctx, body)); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write object %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close object %s: %w", clean, err)
	}

	return b.PublicURL(clean), nil
}

// PublicURL resolves a bucket path to a public URL. Absolute URLs are returned unchanged.
func (b *LocalBucket) PublicURL(p string) string {
	if strings.HasPrefix(p, "http") {
		return p
	}
	return fmt.Sprintf("%s/%s/%s", b.publicBaseURL, b.bucket, strings.TrimPrefix(p, "/"))
}

// Dir returns the directory objects are written to
func (b *LocalBucket) Dir() string {
	return filepath.Join(b.root, b.bucket)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
