// Package search finds bills by free text. Meilisearch serves queries when it
// is configured and healthy; Postgres answers otherwise.
package search

import (
	"context"
	"time"

	"swingvote/api/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Normalize clamps paging to sane bounds.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []store.Bill `json:"results"`
	Total   int          `json:"total"`
	Query   string       `json:"query"`
}

// Searcher can execute a bill search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]store.Bill, int, error)
	Healthy() bool
}

// BillRecord is the data we index for a bill.
type BillRecord struct {
	ID              string     `json:"id"`
	BillSlug        string     `json:"billSlug"`
	Title           string     `json:"title"`
	ShortTitle      string     `json:"shortTitle"`
	Summary         string     `json:"summary"`
	LatestAction    string     `json:"latestAction"`
	VolatilityScore *float64   `json:"volatilityScore"`
	Topics          []string   `json:"topics"`
	LastUpdated     *time.Time `json:"lastUpdated"`
}

// RecordFromBill flattens a bill for indexing.
func RecordFromBill(bill store.Bill) BillRecord {
	topics := bill.Topics
	if topics == nil {
		topics = []string{}
	}
	return BillRecord{
		ID:              bill.ID,
		BillSlug:        bill.BillSlug,
		Title:           bill.Title,
		ShortTitle:      deref(bill.ShortTitle),
		Summary:         deref(bill.Summary),
		LatestAction:    deref(bill.LatestAction),
		VolatilityScore: bill.VolatilityScore,
		Topics:          topics,
		LastUpdated:     bill.LastUpdated,
	}
}

// Bill converts an indexed record back into the API shape. Blank optional
// fields become nil.
func (r BillRecord) Bill() store.Bill {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return store.Bill{
		ID:              r.ID,
		BillSlug:        r.BillSlug,
		Title:           r.Title,
		ShortTitle:      optional(r.ShortTitle),
		Summary:         optional(r.Summary),
		LatestAction:    optional(r.LatestAction),
		VolatilityScore: r.VolatilityScore,
		Topics:          topics,
		LastUpdated:     r.LastUpdated,
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
