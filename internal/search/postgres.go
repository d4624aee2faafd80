package search

import (
	"context"
	"strings"

	"swingvote/api/internal/store"
)

type billMatcher interface {
	SearchBills(ctx context.Context, query string, limit, offset int) ([]store.Bill, int, error)
}

// Postgres implements Searcher with a case-insensitive substring match in the
// primary store.
type Postgres struct {
	matcher billMatcher
}

func NewPostgres(matcher billMatcher) *Postgres {
	return &Postgres{matcher: matcher}
}

// Healthy always returns true; the API cannot serve anything without Postgres.
func (p *Postgres) Healthy() bool {
	return true
}

func (p *Postgres) Search(ctx context.Context, q Query) ([]store.Bill, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}
	q = q.Normalize()
	return p.matcher.SearchBills(ctx, text, q.Limit, q.Offset)
}
