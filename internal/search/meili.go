package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"prezence/api/internal/logging"
	"prezence/api/internal/roster"
)

const (
	idxUnits       = "prezence_units"
	healthInterval = 10 * time.Second
)

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client    meili.ServiceManager
	healthy   atomic.Bool
	done      chan struct{}
	interval  time.Duration
	onRecover atomic.Pointer[func()]

	// mu serialises replacements and guards indexed and generation.
	mu         sync.Mutex
	indexed    map[string]struct{}
	generation uint64
}

// NewMeili creates a Meilisearch client and configures the index. An
// unreachable server is not an error; the health loop picks it up later.
func NewMeili(url, apiKey string) *Meili {
	return newMeili(url, healthInterval, meili.WithAPIKey(apiKey))
}

func newMeili(url string, interval time.Duration, opts ...meili.Option) *Meili {
	client := meili.New(url, opts...)

	m := &Meili{
		client:   client,
		done:     make(chan struct{}),
		interval: interval,
		indexed:  make(map[string]struct{}),
	}

	if _, err := client.Health(); err != nil {
		logging.Logger.WithError(err).WithField("url", url).Warn("search: meilisearch unavailable")
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
		Uid:        idxUnits,
		PrimaryKey: "key",
	}); err != nil {
		logging.Logger.WithError(err).Debugf("search: create index %s (may already exist)", idxUnits)
	}

	index := m.client.Index(idxUnits)
	filterable := []interface{}{"block"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		logging.Logger.WithError(err).Warnf("search: update filterable attrs for %s", idxUnits)
	}
	searchable := []string{"ownerName", "ownerFolded", "unitNumber", "block"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		logging.Logger.WithError(err).Warnf("search: update searchable attrs for %s", idxUnits)
	}
}

// OnRecover registers fn to run each time the health loop sees Meilisearch
// come back, after the index is reconfigured and before searches are routed
// to it again.
func (m *Meili) OnRecover(fn func()) {
	m.onRecover.Store(&fn)
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			if err == nil && !m.healthy.Load() {
				logging.Logger.Info("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
				if fn := m.onRecover.Load(); fn != nil {
					(*fn)()
				}
			}
			m.healthy.Store(err == nil)
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

// Search queries the unit index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	sr := &meili.SearchRequest{
		IndexUID:              idxUnits,
		Query:                 q.Text,
		Limit:                 int64(limitOrDefault(q.Limit)),
		AttributesToHighlight: []string{"ownerName"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.Block != "" {
		sr.Filter = []string{fmt.Sprintf("block = %q", q.Block)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, res := range resp.Results {
		total += int(res.EstimatedTotalHits)
		for _, hit := range res.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:         roster.UnitID(decodeString(hit, "unitId")),
		Block:      decodeString(hit, "block"),
		UnitNumber: decodeString(hit, "unitNumber"),
		OwnerName:  decodeString(hit, "ownerName"),
		Highlight:  decodeFormattedString(hit, "ownerName"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

// Replace makes the index hold exactly records: units that left the roll are
// deleted, the rest are added or updated. A replacement older than the last
// applied generation is dropped.
func (m *Meili) Replace(generation uint64, records []UnitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation <= m.generation {
		return nil
	}
	m.generation = generation

	next := make(map[string]struct{}, len(records))
	for _, r := range records {
		next[r.Key] = struct{}{}
	}
	for key := range m.indexed {
		if _, keep := next[key]; keep {
			continue
		}
		if _, err := m.client.Index(idxUnits).DeleteDocument(key, nil); err != nil {
			return fmt.Errorf("delete unit %s: %w", key, err)
		}
		delete(m.indexed, key)
	}
	if len(records) > 0 {
		if _, err := m.client.Index(idxUnits).AddDocuments(records, nil); err != nil {
			return fmt.Errorf("index units: %w", err)
		}
	}
	m.indexed = next
	return nil
}
