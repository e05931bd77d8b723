// Package s3 stores triple dumps in Amazon S3.
//
// A Source re-reads the object on every pass, which makes a dump in S3 a
// valid input for the two-pass parallel loader without local disk:
//
//	client, err := s3.NewDefaultClient(ctx)
//	if err != nil { ... }
//	n, err := s3.Upload(ctx, client, "bucket", "graphs/social.jsonl.zst", src)
//	report, err := loader.Load(ctx, s3.New(client, "bucket", "graphs/social.jsonl.zst"))
package s3
