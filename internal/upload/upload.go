// internal/upload/upload.go
// File manager for uploaded photos: extension allow-list, declared-size cap,
// pluggable storage backends (local directory or S3).

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
)

// supportedImages are the only accepted upload extensions. All of them are
// image formats, so the image size cap applies to every accepted file.
var supportedImages = map[string]bool{
	"jpeg": true,
	"jpg":  true,
	"bmp":  true,
	"png":  true,
}

// Storage abstracts where uploaded files live
type Storage interface {
	Save(ctx context.Context, filename string, content io.Reader) error
	Load(ctx context.Context, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, filename string) error
}

// Manager validates and persists uploads
type Manager struct {
	storage      Storage
	imageMaxSize int64
	jpegQuality  int
}

// NewManager creates an upload manager. compression is subtracted from full
// JPEG quality when recompressing stored images.
func NewManager(storage Storage, imageMaxSize int64, compression int) *Manager {
	return &Manager{
		storage:      storage,
		imageMaxSize: imageMaxSize,
		jpegQuality:  100 - compression,
	}
}

// CheckFile validates an upload by extension and declared size. The size is
// taken from the part's declared content length, not the streamed bytes; a
// lying client can exceed the cap, which is an accepted trust assumption.
func (m *Manager) CheckFile(filename string, declaredSize int64) error {
	ext := extension(filename)
	if !supportedImages[ext] {
		return apperr.New(apperr.KindFileNotSupport, "This file is not supported")
	}
	if declaredSize > m.imageMaxSize {
		return apperr.New(apperr.KindFileNotSupport, "File is too large")
	}
	return nil
}

// SaveStream persists an upload under a generated reference and returns it.
func (m *Manager) SaveStream(ctx context.Context, filename string, content io.Reader) (string, error) {
	ref := fmt.Sprintf("%s.%s", uuid.New().String(), extension(filename))
	if err := m.storage.Save(ctx, ref, content); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return ref, nil
}

func extension(filename string) string {
	parts := strings.Split(filename, ".")
	return strings.ToLower(parts[len(parts)-1])
}

// LocalStorage keeps uploads in a directory on disk
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a local storage backend
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Save writes the file to the upload directory
func (s *LocalStorage) Save(ctx context.Context, filename string, content io.Reader) error {
	dst, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Load opens a stored file
func (s *LocalStorage) Load(ctx context.Context, filename string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file
func (s *LocalStorage) Delete(ctx context.Context, filename string) error {
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// S3Storage keeps uploads in an S3 bucket
type S3Storage struct {
	client *s3.S3
	bucket string
}

// NewS3Storage creates an S3 storage backend
func NewS3Storage(bucket, region string) (*S3Storage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Storage{
		client: s3.New(sess),
		bucket: bucket,
	}, nil
}

// Save uploads the file to S3
func (s *S3Storage) Save(ctx context.Context, filename string, content io.Reader) error {
	// S3 PutObject needs a seekable body
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Load downloads a stored file from S3
func (s *S3Storage) Load(ctx context.Context, filename string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return out.Body, nil
}

// Delete removes a stored file from S3
func (s *S3Storage) Delete(ctx context.Context, filename string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
