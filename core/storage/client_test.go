package storage_test

import (
	"context"
	"errors"
	"testing"

	"envsync/core/storage"
	"envsync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
			Bucket:    "test-bucket",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "https://s3.amazonaws.com",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    true,
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket is left alone", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "sync").Return(true, nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "sync", ""))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "sync").Return(false, nil)
		client.On("MakeBucket", ctx, "sync", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "sync", "eu-west-1"))
		client.AssertExpectations(t)
	})

	t.Run("lookup failure is reported", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "sync").Return(false, errors.New("denied"))

		err := storage.EnsureBucket(ctx, client, "sync", "")
		assert.ErrorContains(t, err, "denied")
	})
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, storage.IsNotFound(nil))
	assert.True(t, storage.IsNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}))
	assert.True(t, storage.IsNotFound(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}))
	assert.False(t, storage.IsNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}))
	assert.False(t, storage.IsNotFound(errors.New("boom")))
}
