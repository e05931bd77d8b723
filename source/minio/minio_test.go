package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchgraph/model"
	"github.com/hupe1980/batchgraph/source"
)

// fakeClient records uploads. GetObject only reports a missing key because
// *minio.Object cannot be built outside minio-go.
type fakeClient struct {
	objects map[string][]byte
}

func (f *fakeClient) GetObject(_ context.Context, bucket, key string, _ minio.GetObjectOptions) (*minio.Object, error) {
	return nil, minio.ErrorResponse{Code: "NoSuchKey", BucketName: bucket, Key: key}
}

func (f *fakeClient) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func triples() source.Slice {
	return source.Slice{
		model.MustProperty("a", "name", "alice"),
		model.MustEdge("a", "knows", "b", map[string]any{"weight": 0.5}),
	}
}

func TestUpload_Fake(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{}}

	n, err := Upload(context.Background(), client, "graphs", "g.jsonl", triples(), func(o *UploadOptions) {
		o.Compression = source.CompressionLZ4
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := source.Collect(context.Background(), source.Func(func(ctx context.Context) iter.Seq2[model.Triple, error] {
		return source.Decode(ctx, bytes.NewReader(client.objects["graphs/g.jsonl"]))
	}))
	require.NoError(t, err)
	assert.Equal(t, triples(), got)
}

func TestSource_NotFound(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{}}
	_, err := source.Collect(context.Background(), New(client, "graphs", "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestMinio_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinio_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-batchgraph"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	key := fmt.Sprintf("dumps/%d.jsonl.zst", time.Now().UnixNano())
	defer func() { _ = client.RemoveObject(context.Background(), bucket, key, minio.RemoveObjectOptions{}) }()

	n, err := Upload(ctx, client, bucket, key, triples())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	src := New(client, bucket, key)
	for pass := 0; pass < 2; pass++ {
		got, err := source.Collect(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, triples(), got)
	}

	_, err = source.Collect(ctx, New(client, bucket, "dumps/missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}
