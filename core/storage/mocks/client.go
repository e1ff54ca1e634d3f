// Package mocks holds a testify mock of storage.Client.
package mocks

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

// Client mocks storage.Client. Bodies passed to PutObject are kept in
// Uploads, keyed by "<bucket>/<object>", so tests can inspect what was sent.
type Client struct {
	mock.Mock

	mu      sync.Mutex
	Uploads map[string][]byte
}

// NewClient returns a mock that asserts its expectations when t ends.
func NewClient(t *testing.T) *Client {
	c := &Client{}
	t.Cleanup(func() { c.AssertExpectations(t) })
	return c
}

func (m *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ret := m.Called(ctx, bucket)
	return ret.Bool(0), ret.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *Client) PutObject(ctx context.Context, bucket, object string, body io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	ret := m.Called(ctx, bucket, object, body, size, opts)
	if err := ret.Error(1); err != nil {
		return minio.UploadInfo{}, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	if m.Uploads == nil {
		m.Uploads = make(map[string][]byte)
	}
	m.Uploads[bucket+"/"+object] = buf.Bytes()
	m.mu.Unlock()

	info, _ := ret.Get(0).(minio.UploadInfo)
	info.Bucket, info.Key, info.Size = bucket, object, int64(buf.Len())
	return info, nil
}

func (m *Client) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	ret := m.Called(ctx, bucket, object, opts)
	body, _ := ret.Get(0).(io.ReadCloser)
	return body, ret.Error(1)
}
