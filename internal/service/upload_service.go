package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/examsight/api/internal/client"
	"github.com/google/uuid"
)

// SheetUploader defines the interface for sheet image storage
type SheetUploader interface {
	StoreSheet(ctx context.Context, examID, contentType string, file io.Reader) (*StoredSheet, error)
	FetchSheet(ctx context.Context, imageKey string) ([]byte, error)
	DeleteSheet(ctx context.Context, imageKey string) error
}

// StoredSheet describes a sheet image persisted in object storage
type StoredSheet struct {
	SheetID  string
	ImageKey string
	FileURL  string
}

// UploadService stores exam sheet images in R2 storage so the recognition
// worker can fetch them back when the job is picked up
type UploadService struct {
	r2Client client.StorageClient
}

// NewUploadService creates a new upload service with R2 client
func NewUploadService(r2Client client.StorageClient) *UploadService {
	return &UploadService{
		r2Client: r2Client,
	}
}

// StoreSheet persists an uploaded sheet image and returns its storage key
func (s *UploadService) StoreSheet(ctx context.Context, examID, contentType string, file io.Reader) (*StoredSheet, error) {
	sheetID := uuid.New().String()
	key := fmt.Sprintf("sheets/%s/%s", examID, sheetID)

	// Use mock response if client is not configured
	if s.r2Client == nil {
		return &StoredSheet{
			SheetID:  sheetID,
			ImageKey: key,
			FileURL:  fmt.Sprintf("https://cdn.examsight.io/%s", key),
		}, nil
	}

	fileURL, err := s.r2Client.Upload(ctx, key, file, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store sheet: %w", err)
	}

	return &StoredSheet{
		SheetID:  sheetID,
		ImageKey: key,
		FileURL:  fileURL,
	}, nil
}

// FetchSheet retrieves a stored sheet image by key
func (s *UploadService) FetchSheet(ctx context.Context, imageKey string) ([]byte, error) {
	if s.r2Client == nil {
		return nil, fmt.Errorf("storage not configured")
	}

	return s.r2Client.Download(ctx, imageKey)
}

// DeleteSheet removes a stored sheet image
func (s *UploadService) DeleteSheet(ctx context.Context, imageKey string) error {
	if s.r2Client == nil {
		return nil // Mock: no-op
	}

	return s.r2Client.Delete(ctx, imageKey)
}

// GetSignedURL generates a presigned URL for temporary access to a sheet
func (s *UploadService) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.r2Client == nil {
		return fmt.Sprintf("https://cdn.examsight.io/%s", key), nil
	}

	return s.r2Client.GetSignedURL(ctx, key, expiry)
}
