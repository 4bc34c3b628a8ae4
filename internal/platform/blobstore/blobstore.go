// Package blobstore stores diagnostic images attached to completed test
// results. It defines the ImageStore interface and a thread-safe in-memory
// implementation used in development and tests.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrImageTooLarge   = errors.New("image exceeds maximum allowed size")
	ErrUnsupportedType = errors.New("image type is not allowed")
	ErrMissingFileName = errors.New("file name is required")
)

// DefaultMaxImageBytes is the ceiling applied when the store is built
// without an explicit limit.
const DefaultMaxImageBytes = 5 * 1024 * 1024

// AllowedImageTypes lists the accepted image MIME types. Radiology scans
// arrive as JPEG or PNG exports; anything else is rejected.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ImageMetadata describes a stored diagnostic image.
type ImageMetadata struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	PatientID    string    `json:"patient_id,omitempty"`
	TestResultID string    `json:"test_result_id,omitempty"`
	Hash         string    `json:"hash"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by"`
}

// ImageStore defines the contract for image storage backends.
type ImageStore interface {
	Save(ctx context.Context, meta ImageMetadata, content io.Reader) (*ImageMetadata, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *ImageMetadata, error)
	Metadata(ctx context.Context, id string) (*ImageMetadata, error)
	Delete(ctx context.Context, id string) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*ImageMetadata, int, error)
}

type storedImage struct {
	metadata ImageMetadata
	content  []byte
}

// InMemoryImageStore is a thread-safe, in-memory ImageStore.
type InMemoryImageStore struct {
	mu       sync.RWMutex
	maxBytes int64
	images   map[string]*storedImage
}

// NewInMemoryImageStore returns a ready-to-use store. maxBytes of 0 or less
// falls back to DefaultMaxImageBytes.
func NewInMemoryImageStore(maxBytes int64) *InMemoryImageStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &InMemoryImageStore{
		maxBytes: maxBytes,
		images:   make(map[string]*storedImage),
	}
}

// Save validates the upload, computes a SHA-256 hash, and stores the image.
// The content type is sniffed from the payload rather than trusted from the
// caller.
func (s *InMemoryImageStore) Save(_ context.Context, meta ImageMetadata, content io.Reader) (*ImageMetadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}

	// Read into memory to measure size and compute the hash.
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}

	sniffed := http.DetectContentType(data)
	if !AllowedImageTypes[sniffed] {
		return nil, ErrUnsupportedType
	}
	meta.ContentType = sniffed

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.images[meta.ID] = &storedImage{
		metadata: meta,
		content:  data,
	}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

// Open returns an io.ReadCloser over the image content and its metadata.
func (s *InMemoryImageStore) Open(_ context.Context, id string) (io.ReadCloser, *ImageMetadata, error) {
	s.mu.RLock()
	img, ok := s.images[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrImageNotFound
	}

	meta := img.metadata // copy
	return io.NopCloser(bytes.NewReader(img.content)), &meta, nil
}

// Metadata returns image metadata without content.
func (s *InMemoryImageStore) Metadata(_ context.Context, id string) (*ImageMetadata, error) {
	s.mu.RLock()
	img, ok := s.images[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrImageNotFound
	}

	meta := img.metadata // copy
	return &meta, nil
}

// Delete removes an image by ID.
func (s *InMemoryImageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}

// ListByPatient returns the matching page of a patient's images and the
// total count.
func (s *InMemoryImageStore) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*ImageMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*ImageMetadata
	for _, img := range s.images {
		if img.metadata.PatientID != patientID {
			continue
		}
		m := img.metadata // copy
		matched = append(matched, &m)
	}

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}
