package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/acompanha-api/internal/observability"
	"github.com/noah-isme/acompanha-api/pkg/blob"
)

// ErrUploadScanFailed indicates an archive-based document failed inspection.
var ErrUploadScanFailed = errors.New("file scanning failed")

// StoredFile describes a validated blob written to the store.
type StoredFile struct {
	Key              string
	URL              string
	Filename         string
	OriginalFilename string
	Size             int64
	MimeType         string
	Checksum         string
}

// UploadService validates files and writes them to the blob store.
type UploadService interface {
	// Store accepts evaluation attachments: PDF, images and office documents.
	Store(ctx context.Context, prefix, filename string, r io.Reader) (StoredFile, error)
	// StoreImage accepts signature images only.
	StoreImage(ctx context.Context, prefix string, payload []byte) (StoredFile, error)
	// Remove deletes a blob, logging instead of failing.
	Remove(ctx context.Context, key string)
}

type uploadService struct {
	store   blob.Store
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service over the blob store.
func NewUploadService(store blob.Store, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		store:   store,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/upload"),
		now:     time.Now,
	}
}

func (s *uploadService) Store(ctx context.Context, prefix, filename string, r io.Reader) (StoredFile, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(filename)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(r, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return StoredFile{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return StoredFile{}, ErrAttachmentTooLarge
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedAttachment(fileType) {
		observability.UploadsRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return StoredFile{}, ErrAttachmentTypeNotAllowed
	}
	if err := s.scan(buf.Bytes(), fileType); err != nil {
		observability.UploadsRejected().WithLabelValues("scan").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return StoredFile{}, err
	}

	return s.put(ctx, span, prefix, filename, fileType, buf.Bytes())
}

func (s *uploadService) StoreImage(ctx context.Context, prefix string, payload []byte) (StoredFile, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store_image")
	defer span.End()

	if int64(len(payload)) > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		return StoredFile{}, ErrAttachmentTooLarge
	}
	detected := mimetype.Detect(payload)
	if !strings.HasPrefix(detected.String(), "image/") {
		observability.UploadsRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return StoredFile{}, ErrInvalidSignatureImage
	}

	return s.put(ctx, span, prefix, "signature"+detected.Extension(), detected.String(), payload)
}

func (s *uploadService) put(ctx context.Context, span trace.Span, prefix, original, fileType string, payload []byte) (StoredFile, error) {
	checksum := sha256.Sum256(payload)
	name := sanitizeFileName(original)
	key := strings.Trim(prefix, "/") + "/" + uuid.NewString() + "_" + name

	object, err := s.store.Put(ctx, key, bytes.NewReader(payload))
	if err != nil {
		observability.UploadsRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return StoredFile{}, err
	}

	span.SetAttributes(attribute.String("upload.key", object.Key), attribute.Int64("upload.size_bytes", int64(len(payload))))
	span.SetStatus(codes.Ok, "stored")
	return StoredFile{
		Key:              object.Key,
		URL:              object.URL,
		Filename:         name,
		OriginalFilename: strings.TrimSpace(filepath.Base(original)),
		Size:             int64(len(payload)),
		MimeType:         fileType,
		Checksum:         hex.EncodeToString(checksum[:]),
	}, nil
}

func (s *uploadService) Remove(ctx context.Context, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete blob")
	}
}

// scan bounds the expansion of zip-based office documents.
func (s *uploadService) scan(payload []byte, mime string) error {
	if !strings.Contains(mime, "openxmlformats") && !strings.Contains(mime, "zip") {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if lower == "application/x-zip-compressed" {
		return "application/zip"
	}
	return lower
}

func isAllowedAttachment(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	switch m {
	case "application/pdf",
		"application/msword",
		"application/vnd.ms-excel",
		"application/x-ole-storage",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	default:
		return false
	}
}
