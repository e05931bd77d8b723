package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

// ErrNotFound is returned when the dump object does not exist.
var ErrNotFound = errors.New("dump object not found")

// Client is the subset of *minio.Client used to read and write dumps.
type Client interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ Client = (*minio.Client)(nil)

// Source reads a triple dump stored in MinIO or another S3-compatible store.
type Source struct {
	client Client
	bucket string
	key    string
}

var _ source.Source = (*Source)(nil)

// New returns a Source for bucket/key.
func New(client Client, bucket, key string) *Source {
	return &Source{client: client, bucket: bucket, key: key}
}

// Triples streams and decodes the object. Every pass opens it again.
func (s *Source) Triples(ctx context.Context) iter.Seq2[model.Triple, error] {
	return func(yield func(model.Triple, error) bool) {
		obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
		if err != nil {
			yield(model.Triple{}, s.translate(err))
			return
		}
		defer obj.Close()

		for t, err := range source.Decode(ctx, obj) {
			if err != nil {
				// GetObject is lazy; a missing key surfaces on the first read.
				yield(model.Triple{}, s.translate(err))
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (s *Source) translate(err error) error {
	code := minio.ToErrorResponse(err).Code
	if code == "NoSuchKey" || code == "NotFound" {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.bucket, s.key)
	}
	return err
}

// UploadOptions configures Upload.
type UploadOptions struct {
	// Compression of the dump. Default: zstd.
	Compression source.Compression
	// PartSize of the multipart upload. 0 lets the client choose.
	PartSize uint64
}

// Upload writes one pass of src as a dump to bucket/key and returns the
// number of triples written. The size is unknown up front, so the client
// streams a multipart upload.
func Upload(ctx context.Context, client Client, bucket, key string, src source.Source, optFns ...func(o *UploadOptions)) (int64, error) {
	opts := UploadOptions{Compression: source.CompressionZstd}
	for _, fn := range optFns {
		fn(&opts)
	}

	pr, pw := io.Pipe()
	type result struct {
		n   int64
		err error
	}
	written := make(chan result, 1)

	go func() {
		n, err := source.Write(ctx, pw, src.Triples(ctx), func(o *source.EncoderOptions) {
			o.Compression = opts.Compression
		})
		_ = pw.CloseWithError(err)
		written <- result{n: n, err: err}
	}()

	_, upErr := client.PutObject(ctx, bucket, key, pr, -1, minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
		PartSize:    opts.PartSize,
	})
	_ = pr.CloseWithError(upErr)

	res := <-written
	if res.err != nil {
		return res.n, res.err
	}
	if upErr != nil {
		return res.n, fmt.Errorf("upload %s/%s: %w", bucket, key, upErr)
	}
	return res.n, nil
}
