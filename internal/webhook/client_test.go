package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prezence/api/internal/roster"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 5, 123_000_000, time.UTC)

func newTestClient() *Client {
	c := New(5 * time.Second)
	c.Now = func() time.Time { return fixedNow }
	return c
}

func TestFetchSendsAction(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `[{"0":"1"}]`)
	}))
	defer srv.Close()

	body, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `[{"0":"1"}]`, string(body))
	assert.Equal(t, "fetch_all", got["action"])
	assert.Equal(t, float64(fixedNow.UnixMilli()), got["_t"])
}

func TestFetchReturnsBodyOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "Scenario failed")
	}))
	defer srv.Close()

	body, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Scenario failed", string(body))
}

func TestFetchNotConfigured(t *testing.T) {
	_, err := newTestClient().Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient().Fetch(context.Background(), url)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "webhook unreachable")
}

func TestExportPayload(t *testing.T) {
	var got struct {
		Action    string           `json:"action"`
		Timestamp string           `json:"timestamp"`
		Units     []map[string]any `json:"units"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	units := []roster.Unit{
		{ID: roster.NumericID(4), Block: "2262", UnitNumber: "4", OwnerName: "Petr Novák"},
		{ID: "A-12", Block: "2263", UnitNumber: "12", OwnerName: "Eva"},
	}
	require.NoError(t, newTestClient().Export(context.Background(), srv.URL, units))

	assert.Equal(t, "export_all", got.Action)
	assert.Equal(t, "2026-03-14T09:30:05.123Z", got.Timestamp)
	require.Len(t, got.Units, 2)
	assert.Equal(t, map[string]any{
		"ID":        float64(4),
		"RowNumber": float64(5),
		"Vchod":     "2262",
		"Jednotka":  "4",
		"Vlastník":  "Petr Novák",
		"Vlastnik":  "Petr Novák",
	}, got.Units[0])
	assert.Equal(t, float64(12), got.Units[1]["ID"])
	assert.Equal(t, float64(13), got.Units[1]["RowNumber"])
}

func TestExportRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad sheet")
	}))
	defer srv.Close()

	err := newTestClient().Export(context.Background(), srv.URL, []roster.Unit{{ID: "1"}})
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "bad sheet", re.Body)
	assert.Contains(t, re.Error(), "400 Bad Request")
}

func TestExportNotConfigured(t *testing.T) {
	err := newTestClient().Export(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
