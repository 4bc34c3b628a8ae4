package auditexport

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mmh/hms/internal/platform/session"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log appends an export entry.
func (s *Service) Log(ctx context.Context, p *session.Principal, exportType string) (*Entry, error) {
	if exportType == "" {
		return nil, fmt.Errorf("%w: export_type is required", ErrInvalid)
	}
	e := &Entry{
		UserID:     p.UserID,
		Username:   p.Username,
		Role:       p.Role,
		Department: p.Department,
		ExportType: exportType,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// LogBestEffort is the fire-and-forget variant for callers whose own work
// must not fail because the side-channel log did. Failures are logged and
// swallowed.
func (s *Service) LogBestEffort(ctx context.Context, p *session.Principal, exportType string) {
	if _, err := s.Log(ctx, p, exportType); err != nil {
		s.logger.Error().
			Err(err).
			Str("user", p.Username).
			Str("export_type", exportType).
			Msg("export log write failed")
	}
}

// List returns the export log, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, limit, offset)
}
