package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"swingvote/api/internal/store"
)

const idxBills = "swingvote_bills"

var (
	billSearchable = []string{"title", "shortTitle", "summary", "topics"}
	billFilterable = []string{"topics"}
)

// Meili implements Searcher over a Meilisearch bill index.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the bill index. An
// unreachable server is not an error: the client reports unhealthy and a
// background loop keeps probing it.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger.Named("search"),
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxBills,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxBills), zap.Error(err))
	}

	index := m.client.Index(idxBills)
	filterable := make([]interface{}, len(billFilterable))
	for i, v := range billFilterable {
		filterable[i] = v
	}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.String("index", idxBills), zap.Error(err))
	}
	searchable := append([]string(nil), billSearchable...)
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.String("index", idxBills), zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]store.Bill, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}
	q = q.Normalize()

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxBills,
			Query:    text,
			Limit:    int64(q.Limit),
			Offset:   int64(q.Offset),
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	bills := make([]store.Bill, 0)
	total := 0
	for _, result := range resp.Results {
		total += int(result.EstimatedTotalHits)
		for _, hit := range result.Hits {
			record, err := decodeHit(hit)
			if err != nil {
				return nil, 0, err
			}
			bills = append(bills, record.Bill())
		}
	}
	return bills, total, nil
}

func decodeHit(hit meili.Hit) (BillRecord, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return BillRecord{}, fmt.Errorf("encode hit: %w", err)
	}
	var record BillRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return BillRecord{}, fmt.Errorf("decode hit: %w", err)
	}
	return record, nil
}

// IndexBills adds or replaces bills in the index.
func (m *Meili) IndexBills(records []BillRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxBills).AddDocuments(records, nil)
	return err
}
