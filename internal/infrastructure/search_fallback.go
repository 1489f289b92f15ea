package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// FallbackSearcher tries each provider in order until one returns results
type FallbackSearcher struct {
	providers []domain.Searcher
	logger    *zap.Logger
}

// NewFallbackSearcher creates a searcher over the given providers
func NewFallbackSearcher(logger *zap.Logger, providers ...domain.Searcher) *FallbackSearcher {
	return &FallbackSearcher{providers: providers, logger: logger}
}

// Name identifies the search provider chain
func (s *FallbackSearcher) Name() string {
	return "fallback"
}

// Search returns the first non-empty result set. An empty result from every
// provider is not an error.
func (s *FallbackSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no search providers configured", domain.ErrExtraction)
	}

	var errs []error
	for _, p := range s.providers {
		hits, err := p.Search(ctx, query, limit)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyQuery) {
				return nil, err
			}
			s.logger.Warn("Search provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if len(hits) > 0 {
			return hits, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if len(errs) == len(s.providers) {
		return nil, errors.Join(errs...)
	}
	return []domain.SearchHit{}, nil
}
