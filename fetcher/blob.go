package fetcher

import (
	"context"
	"fmt"
	"io/fs"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"
)

// Blob serves resources from a Go CDK bucket, keyed by path.
type Blob struct {
	bucket *blob.Bucket
}

// NewBlob wraps an already opened bucket. The caller keeps ownership of it.
func NewBlob(bucket *blob.Bucket) *Blob {
	return &Blob{bucket: bucket}
}

// OpenBlob opens the bucket at url, e.g. "file:///srv/l10n" or "mem://".
func OpenBlob(ctx context.Context, url string) (*Blob, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return &Blob{bucket: bucket}, nil
}

func (b *Blob) FetchSync(path string) (string, error) {
	return b.Fetch(context.Background(), path)
}

func (b *Blob) Fetch(ctx context.Context, path string) (string, error) {
	data, err := b.bucket.ReadAll(ctx, path)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", fmt.Errorf("blob fetch %s: %w", path, fs.ErrNotExist)
		}
		return "", fmt.Errorf("blob fetch %s: %w", path, err)
	}
	return string(data), nil
}

// Close closes the underlying bucket.
func (b *Blob) Close() error {
	return b.bucket.Close()
}
