package storage

import (
	"context"
	"io"
	"sync"
)

// MockUploader is a mock implementation of FileUploader for testing.
// It is safe for concurrent use.
type MockUploader struct {
	mu sync.Mutex

	// Spies for method calls
	UploadFunc func(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	DeleteFunc func(ctx context.Context, key string) error

	// Call records
	UploadCalls []struct {
		Key         string
		ContentType string
		Body        []byte
	}
	DeleteCalls []string
}

func NewMock() *MockUploader {
	return &MockUploader{}
}

func (m *MockUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	m.UploadCalls = append(m.UploadCalls, struct {
		Key         string
		ContentType string
		Body        []byte
	}{key, contentType, body})
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, contentType, reader)
	}
	return &UploadResult{Key: key, Location: m.GetPublicURL(key)}, nil
}

func (m *MockUploader) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *MockUploader) GetPublicURL(key string) string {
	return publicURL("https://cdn.test", key)
}
