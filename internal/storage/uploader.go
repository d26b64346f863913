package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// MaxLogoSize caps the size of an uploaded team logo.
const MaxLogoSize = 2 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrDisabled        = errors.New("logo storage is not configured")
)

var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// LogoKey builds the object key for a team logo of the given content type.
func LogoKey(teamID, contentType string) (string, error) {
	ext, ok := logoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return path.Join("teams", teamID, "logo"+ext), nil
}

type disabled struct{}

// NewDisabled returns an uploader that rejects every upload.
func NewDisabled() FileUploader {
	return disabled{}
}

func (disabled) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	return nil, ErrDisabled
}

func (disabled) Delete(ctx context.Context, key string) error {
	return ErrDisabled
}

func (disabled) GetPublicURL(key string) string {
	return ""
}
