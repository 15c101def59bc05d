package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/media"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrUploadTooLarge    = errors.New("upload exceeds size limit")
	ErrUploadUnsupported = errors.New("unsupported image type")
)

type MediaUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type MediaUploadResult struct {
	URL         string
	ObjectKey   string
	ContentType string
	Width       int
	Height      int
	SizeBytes   int64
}

type MediaServiceConfig struct {
	Bucket       string
	PublicBase   string
	MaxBytes     int64
	MaxDimension int
}

// MediaService stores gallery and hero images for guidebooks. Oversized
// images are downscaled before upload so guests never pull multi-megabyte
// originals onto a phone.
type MediaService struct {
	guidebooks ports.GuidebookRepository
	storage    ports.ObjectStorage
	processor  media.Processor

	bucket       string
	publicBase   string
	maxBytes     int64
	maxDimension int
	now          func() time.Time
}

func NewMediaService(guidebooks ports.GuidebookRepository, storage ports.ObjectStorage, processor media.Processor, cfg MediaServiceConfig) *MediaService {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	maxDimension := cfg.MaxDimension
	if maxDimension <= 0 {
		maxDimension = media.DefaultMaxDimension
	}
	return &MediaService{
		guidebooks:   guidebooks,
		storage:      storage,
		processor:    processor,
		bucket:       cfg.Bucket,
		publicBase:   strings.TrimRight(cfg.PublicBase, "/"),
		maxBytes:     maxBytes,
		maxDimension: maxDimension,
		now:          time.Now,
	}
}

// SetClock overrides time lookups in tests.
func (s *MediaService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *MediaService) UploadImage(ctx context.Context, ownerID, guidebookID uuid.UUID, upload MediaUpload) (*MediaUploadResult, error) {
	gb, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, fmt.Errorf("load guidebook: %w", err)
	}
	if gb.DeletedAt != nil {
		return nil, ErrGuidebookNotFound
	}
	if gb.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	if upload.Reader == nil {
		return nil, fmt.Errorf("%w: empty upload", ErrUploadUnsupported)
	}
	if upload.Size > s.maxBytes {
		return nil, ErrUploadTooLarge
	}

	// LimitReader guards against clients lying about Content-Length.
	limited := io.LimitReader(upload.Reader, s.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrUploadTooLarge
	}

	result, err := s.processor.Process(ctx, media.Upload{
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
	}, s.maxDimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadUnsupported, err)
	}

	objectKey := fmt.Sprintf("guidebooks/%s/%s%s",
		guidebookID.String(),
		s.now().UTC().Format("20060102T150405"),
		imageExtension(result.ContentType, upload.FileName),
	)

	url, err := s.storage.Upload(ctx, s.bucket, objectKey, result.ContentType, bytes.NewReader(result.Bytes), int64(len(result.Bytes)))
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	if s.publicBase != "" {
		url = s.publicBase + "/" + strings.TrimLeft(objectKey, "/")
	}

	return &MediaUploadResult{
		URL:         url,
		ObjectKey:   objectKey,
		ContentType: result.ContentType,
		Width:       result.Width,
		Height:      result.Height,
		SizeBytes:   int64(len(result.Bytes)),
	}, nil
}

func imageExtension(contentType, fileName string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if fileName != "" {
		if ext := strings.ToLower(strings.TrimSpace(filepath.Ext(fileName))); ext != "" {
			return ext
		}
	}
	return ".bin"
}
