package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

// ErrNotFound is returned when the dump object does not exist.
var ErrNotFound = errors.New("dump object not found")

// Client is the subset of *s3.Client used to read and write dumps.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewDefaultClient builds an S3 client from the default AWS credential chain.
func NewDefaultClient(ctx context.Context, optFns ...func(*config.LoadOptions) error) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Source reads a triple dump stored as one S3 object.
// Every pass issues a new GetObject, so the dump is never held locally.
type Source struct {
	client Client
	bucket string
	key    string
}

var _ source.Source = (*Source)(nil)

// New returns a Source for s3://bucket/key.
func New(client Client, bucket, key string) *Source {
	return &Source{client: client, bucket: bucket, key: key}
}

// Triples streams and decodes the object.
func (s *Source) Triples(ctx context.Context) iter.Seq2[model.Triple, error] {
	return func(yield func(model.Triple, error) bool) {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if err != nil {
			yield(model.Triple{}, s.translate(err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		for t, err := range source.Decode(ctx, resp.Body) {
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

func (s *Source) translate(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, s.key)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, s.key)
	}
	return err
}

// UploadOptions configures Upload.
type UploadOptions struct {
	// Compression of the dump. Default: zstd.
	Compression source.Compression

	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB (larger than the SDK default of 5MB for better throughput).
	PartSize int64

	// Concurrency is the number of concurrent part uploads. Default: 5.
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation. Default: true.
	EnableChecksum bool
}

// DefaultUploadOptions returns the settings used when no option is given.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		Compression:    source.CompressionZstd,
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

// Upload writes one pass of src as a dump to s3://bucket/key and returns the
// number of triples written. The dump is streamed; it is never buffered in
// full.
func Upload(ctx context.Context, client Client, bucket, key string, src source.Source, optFns ...func(o *UploadOptions)) (int64, error) {
	opts := DefaultUploadOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = opts.PartSize
		u.Concurrency = opts.Concurrency
	})

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

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if opts.EnableChecksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	_, upErr := uploader.Upload(ctx, input)
	// Unblock the writer if the upload stopped reading early.
	_ = pr.CloseWithError(upErr)

	res := <-written
	if res.err != nil {
		return res.n, res.err
	}
	if upErr != nil {
		return res.n, fmt.Errorf("upload s3://%s/%s: %w", bucket, key, upErr)
	}
	return res.n, nil
}
