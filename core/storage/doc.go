// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so interchange files produced in one
// environment can be shipped to the other through an S3 compatible bucket.
// Both AWS S3 and self-hosted MinIO instances are supported.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: bucket bootstrap through EnsureBucket.
//   - PutObject: uploads an interchange file.
//   - GetObject: retrieves an interchange file as a stream.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
