package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"swingvote/api/internal/store"
)

type indexer interface {
	Searcher
	IndexBills(records []BillRecord) error
}

// Service is the facade that tries Meilisearch first and falls back to
// Postgres.
type Service struct {
	primary  indexer
	fallback Searcher
	logger   *zap.Logger
}

// NewService creates a search service. primary may be nil when Meilisearch is
// not configured.
func NewService(primary *Meili, fallback Searcher, logger *zap.Logger) *Service {
	s := &Service{fallback: fallback, logger: logger}
	if primary != nil {
		s.primary = primary
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Search tries the index when healthy, otherwise the fallback. Errors are
// logged and answered with an empty result set.
func (s *Service) Search(ctx context.Context, q Query) Response {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Response{Results: []store.Bill{}, Total: 0, Query: q.Text}
	}

	if s.primary != nil && s.primary.Healthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []store.Bill{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", zap.Error(err))
		return Response{Results: []store.Bill{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexBills pushes bills to the index. It is a no-op without a healthy index
// and never fails the caller.
func (s *Service) IndexBills(bills []store.Bill) {
	if s.primary == nil || !s.primary.Healthy() || len(bills) == 0 {
		return
	}
	records := make([]BillRecord, 0, len(bills))
	for _, bill := range bills {
		records = append(records, RecordFromBill(bill))
	}
	if err := s.primary.IndexBills(records); err != nil {
		s.logger.Warn("index bills failed", zap.Int("count", len(records)), zap.Error(err))
	}
}

func nonNil(r []store.Bill) []store.Bill {
	if r == nil {
		return []store.Bill{}
	}
	return r
}
