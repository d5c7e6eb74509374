package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Musio/logger"
	"Musio/metrics"
	"Musio/model"
	"Musio/repository"
)

// Catalog is the read side of the track store the service scores against.
type Catalog interface {
	ListAll(ctx context.Context) ([]model.Track, error)
	GetByID(ctx context.Context, id string) (*model.Track, error)
}

// Service fetches catalog snapshots and hands them to a Scorer.
type Service struct {
	catalog      Catalog
	scorer       *Scorer
	defaultLimit int
	now          func() time.Time
}

// NewService creates a Service. defaultLimit <= 0 means DefaultLimit.
func NewService(catalog Catalog, scorer *Scorer, defaultLimit int) *Service {
	if scorer == nil {
		scorer = NewScorer()
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{
		catalog:      catalog,
		scorer:       scorer,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// Recommend serves req against the current catalog.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if req.Limit <= 0 {
		req.Limit = s.defaultLimit
	}
	mode := req.Resolve()

	if mode == ModeSimilar {
		if _, err := s.catalog.GetByID(ctx, req.SeedID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrSeedNotFound
			}
			return nil, fmt.Errorf("failed to load seed track: %w", err)
		}
	}

	tracks, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	start := time.Now()
	resp, err := s.scorer.Recommend(tracks, req, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordRecommendation(string(resp.Mode), len(resp.Candidates), time.Since(start))
	logger.Debug("recommendations computed",
		logger.String("mode", string(resp.Mode)),
		logger.Int("catalog", len(tracks)),
		logger.Int("returned", len(resp.Candidates)),
		logger.Int("totalFound", resp.TotalFound))
	return resp, nil
}
