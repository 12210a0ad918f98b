// Package workflow orchestrates the generate / select / sweep flows over the
// provider registry, the ledger, the blob store, and the local preview area.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"imgbridge/internal/config"
	"imgbridge/internal/ledger"
	"imgbridge/internal/provider"
	"imgbridge/internal/storage"
	"imgbridge/pkg/apperrors"
)

// previewDirPrefix names generation preview directories; the retention sweep
// only ever touches entries carrying it.
const previewDirPrefix = "gen_"

type Service struct {
	cfg      *config.Config
	repo     *ledger.Repo
	registry *provider.Registry
	store    storage.BlobStore
	log      *slog.Logger

	// now is the wall clock; tests pin it.
	now func() time.Time
}

func NewService(cfg *config.Config, repo *ledger.Repo, registry *provider.Registry, store storage.BlobStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		registry: registry,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]ledger.Generation, error) {
	return s.repo.ListGenerations(ctx, limit)
}

// Costs aggregates spend for a named period: day (since local midnight),
// week (seven days including today), month (first of the current month), or
// all (unbounded).
func (s *Service) Costs(ctx context.Context, period string) (*ledger.CostSummary, error) {
	now := s.now()
	var since *time.Time
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "day":
		t := startOfDay(now)
		since = &t
	case "week":
		t := startOfDay(now).AddDate(0, 0, -6)
		since = &t
	case "month":
		t := startOfMonth(now)
		since = &t
	case "", "all":
		since = nil
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "unknown period %q", period)
	}
	return s.repo.GetCosts(ctx, since)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
