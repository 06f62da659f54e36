package search

import (
	"sync"
	"sync/atomic"

	"prezence/api/internal/logging"
	"prezence/api/internal/roster"
)

const (
	SourceMeili  = "meilisearch"
	SourceMemory = "memory"
)

// Service is the facade that tries Meilisearch first and falls back to the
// in-memory matcher.
type Service struct {
	meili      *Meili
	memory     *Memory
	generation atomic.Uint64

	// mu guards records, the last roll handed to Reindex.
	mu      sync.Mutex
	records []UnitRecord
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili) *Service {
	s := &Service{meili: meili, memory: NewMemory()}
	if meili != nil {
		meili.OnRecover(s.replay)
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to memory.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: SourceMeili}
		}
		logging.Logger.WithError(err).Warn("search: meilisearch error, falling back to memory")
	}

	results, total, _ := s.memory.Search(q)
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: SourceMemory}
}

// Reindex replaces the searchable roll. The memory index is updated
// synchronously; Meilisearch is updated fire-and-forget. While Meilisearch is
// down the roll is kept and pushed once it recovers.
func (s *Service) Reindex(units []roster.Unit) {
	s.memory.Replace(units)
	if s.meili == nil {
		return
	}
	records := make([]UnitRecord, len(units))
	for i, u := range units {
		records[i] = newRecord(u)
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	if !s.meili.Healthy() {
		return
	}
	gen := s.generation.Add(1)
	go func() {
		if err := s.meili.Replace(gen, records); err != nil {
			logging.Logger.WithError(err).Warn("search: reindex units")
		}
	}()
}

func (s *Service) replay() {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()
	if records == nil {
		return
	}
	if err := s.meili.Replace(s.generation.Add(1), records); err != nil {
		logging.Logger.WithError(err).Warn("search: replay units after recovery")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
