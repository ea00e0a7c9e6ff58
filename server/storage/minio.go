package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrEmptyScreenshot    = errors.New("empty screenshot")
	ErrScreenshotNotFound = errors.New("screenshot not found")
)

// ScreenshotInfo describes a stored screenshot object.
type ScreenshotInfo struct {
	ContentType string
	Size        int64
}

// Storage keeps device screenshots in a MinIO bucket.
type Storage struct {
	client            *minio.Client
	screenshotsBucket string
}

func New(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, screenshotsBucket string) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if screenshotsBucket == "" {
		screenshotsBucket = "screenshots"
	}

	exists, err := client.BucketExists(ctx, screenshotsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", screenshotsBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, screenshotsBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", screenshotsBucket, err)
		}
	}

	return &Storage{client: client, screenshotsBucket: screenshotsBucket}, nil
}

// PutScreenshot decodes a base64 screenshot (optionally a data URI) and
// stores it under DEVICE/YYYY/MM/DD/. It returns the object name.
func (s *Storage) PutScreenshot(ctx context.Context, deviceID string, ts time.Time, encoded []byte) (string, error) {
	data, err := decodeScreenshot(encoded)
	if err != nil {
		return "", err
	}
	contentType := http.DetectContentType(data)
	objectName := objectNameFor(deviceID, ts, contentType)

	_, err = s.client.PutObject(
		ctx,
		s.screenshotsBucket,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}

	return objectName, nil
}

// OpenScreenshot streams a stored screenshot by object key. The caller closes the reader.
func (s *Storage) OpenScreenshot(ctx context.Context, key string) (io.ReadCloser, ScreenshotInfo, error) {
	if !validObjectKey(key) {
		return nil, ScreenshotInfo{}, ErrScreenshotNotFound
	}

	object, err := s.client.GetObject(ctx, s.screenshotsBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ScreenshotInfo{}, fmt.Errorf("failed to get screenshot: %w", err)
	}

	stat, err := object.Stat()
	if err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ScreenshotInfo{}, ErrScreenshotNotFound
		}
		return nil, ScreenshotInfo{}, fmt.Errorf("failed to stat screenshot: %w", err)
	}

	return object, ScreenshotInfo{ContentType: stat.ContentType, Size: stat.Size}, nil
}

func validObjectKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

func objectNameFor(deviceID string, ts time.Time, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	safeID := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(deviceID)
	ts = ts.UTC()
	return fmt.Sprintf("%s/%s/%s_%s%s", safeID, ts.Format("2006/01/02"), ts.Format("150405"), uuid.NewString()[:8], ext)
}

// decodeScreenshot accepts standard or raw base64, with or without a
// "data:image/...;base64," prefix.
func decodeScreenshot(encoded []byte) ([]byte, error) {
	s := strings.TrimSpace(string(encoded))
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	if s == "" {
		return nil, ErrEmptyScreenshot
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyScreenshot
	}
	return data, nil
}
