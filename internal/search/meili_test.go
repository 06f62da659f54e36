package search

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"prezence/api/internal/roster"
)

// fakeMeili answers the handful of endpoints the indexer calls and records
// every document batch it receives.
type fakeMeili struct {
	up atomic.Bool

	mu      sync.Mutex
	batches [][]UnitRecord
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !f.up.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"down","code":"internal"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/health" {
		_, _ = w.Write([]byte(`{"status":"available"}`))
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/indexes/"+idxUnits+"/documents" {
		body, _ := io.ReadAll(r.Body)
		var batch []UnitRecord
		_ = json.Unmarshal(body, &batch)
		f.mu.Lock()
		f.batches = append(f.batches, batch)
		f.mu.Unlock()
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"` + idxUnits + `","status":"enqueued"}`))
}

func (f *fakeMeili) lastBatch() ([]UnitRecord, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, 0
	}
	return f.batches[len(f.batches)-1], len(f.batches)
}

func TestReindexReplaysRollWhenMeiliRecovers(t *testing.T) {
	fake := &fakeMeili{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	m := newMeili(srv.URL, 20*time.Millisecond, meili.DisableRetries())
	defer m.Close()
	svc := NewService(m)

	svc.Reindex(roster.DefaultUnits())
	if m.Healthy() {
		t.Fatal("expected meilisearch to start unhealthy")
	}
	if _, n := fake.lastBatch(); n != 0 {
		t.Fatalf("expected no documents while down, got %d batches", n)
	}
	if resp := svc.Search(Query{Text: "vlastnik 42"}); resp.Source != SourceMemory {
		t.Errorf("expected memory source while down, got %q", resp.Source)
	}

	fake.up.Store(true)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if batch, _ := fake.lastBatch(); batch != nil && m.Healthy() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	batch, n := fake.lastBatch()
	if n == 0 {
		t.Fatal("expected the roll to be pushed after recovery")
	}
	if len(batch) != len(roster.DefaultUnits()) {
		t.Errorf("expected %d documents, got %d", len(roster.DefaultUnits()), len(batch))
	}
	if !m.Healthy() {
		t.Error("expected meilisearch healthy after recovery")
	}
}

func TestReplayWithoutRollIsNoop(t *testing.T) {
	fake := &fakeMeili{}
	fake.up.Store(true)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	m := newMeili(srv.URL, time.Hour, meili.DisableRetries())
	defer m.Close()
	svc := NewService(m)

	svc.replay()
	if _, n := fake.lastBatch(); n != 0 {
		t.Errorf("expected no documents before the first reindex, got %d batches", n)
	}
}
