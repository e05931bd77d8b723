// Package minio stores triple dumps in MinIO and other S3-compatible object
// stores through minio-go.
package minio
