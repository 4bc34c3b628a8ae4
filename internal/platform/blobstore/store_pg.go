package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationImages is the SQL DDL for the images table. Safe to run more than
// once; the serve command executes it at startup.
const MigrationImages = `
CREATE TABLE IF NOT EXISTS images (
    id              UUID PRIMARY KEY,
    file_name       TEXT NOT NULL,
    content_type    TEXT NOT NULL,
    size            BIGINT NOT NULL,
    patient_id      TEXT NOT NULL DEFAULT '',
    test_result_id  TEXT NOT NULL DEFAULT '',
    hash            TEXT NOT NULL,
    content         BYTEA NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_by      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_images_patient_id ON images (patient_id);
`

const imageMetaCols = `id, file_name, content_type, size, patient_id, test_result_id, hash, created_at, created_by`

// PGImageStore persists images in Postgres. Content lives in a bytea column
// so diagnostic uploads share the durability and backup story of the rest of
// the record.
type PGImageStore struct {
	pool     *pgxpool.Pool
	maxBytes int64
}

// NewPGImageStore returns a Postgres-backed store. maxBytes of 0 or less
// falls back to DefaultMaxImageBytes.
func NewPGImageStore(pool *pgxpool.Pool, maxBytes int64) *PGImageStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &PGImageStore{pool: pool, maxBytes: maxBytes}
}

func (s *PGImageStore) Save(ctx context.Context, meta ImageMetadata, content io.Reader) (*ImageMetadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}

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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO images (id, file_name, content_type, size, patient_id, test_result_id, hash, content, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		meta.ID, meta.FileName, meta.ContentType, meta.Size,
		meta.PatientID, meta.TestResultID, meta.Hash, data, meta.CreatedAt, meta.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("inserting image: %w", err)
	}

	out := meta
	return &out, nil
}

func (s *PGImageStore) Open(ctx context.Context, id string) (io.ReadCloser, *ImageMetadata, error) {
	var (
		meta    ImageMetadata
		content []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT `+imageMetaCols+`, content FROM images WHERE id = $1`, id).Scan(
		&meta.ID, &meta.FileName, &meta.ContentType, &meta.Size,
		&meta.PatientID, &meta.TestResultID, &meta.Hash, &meta.CreatedAt, &meta.CreatedBy,
		&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrImageNotFound
		}
		return nil, nil, fmt.Errorf("loading image: %w", err)
	}
	return io.NopCloser(bytes.NewReader(content)), &meta, nil
}

func (s *PGImageStore) Metadata(ctx context.Context, id string) (*ImageMetadata, error) {
	var meta ImageMetadata
	err := s.pool.QueryRow(ctx, `
		SELECT `+imageMetaCols+` FROM images WHERE id = $1`, id).Scan(
		&meta.ID, &meta.FileName, &meta.ContentType, &meta.Size,
		&meta.PatientID, &meta.TestResultID, &meta.Hash, &meta.CreatedAt, &meta.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("loading image metadata: %w", err)
	}
	return &meta, nil
}

func (s *PGImageStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (s *PGImageStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*ImageMetadata, int, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM images WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting images: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+imageMetaCols+` FROM images
		WHERE patient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var out []*ImageMetadata
	for rows.Next() {
		var meta ImageMetadata
		if err := rows.Scan(
			&meta.ID, &meta.FileName, &meta.ContentType, &meta.Size,
			&meta.PatientID, &meta.TestResultID, &meta.Hash, &meta.CreatedAt, &meta.CreatedBy); err != nil {
			return nil, 0, fmt.Errorf("scanning image metadata: %w", err)
		}
		out = append(out, &meta)
	}
	return out, total, rows.Err()
}
