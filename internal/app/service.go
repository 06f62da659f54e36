package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"prezence/api/internal/analysis"
	"prezence/api/internal/config"
	"prezence/api/internal/export"
	"prezence/api/internal/importer"
	"prezence/api/internal/logging"
	"prezence/api/internal/roster"
	"prezence/api/internal/search"
	"prezence/api/internal/state"
	"prezence/api/internal/webhook"
)

// InFlight reports which remote operations are running right now.
type InFlight struct {
	Fetching  bool `json:"fetching"`
	Syncing   bool `json:"syncing"`
	Analyzing bool `json:"analyzing"`
}

// StatePayload is everything a client needs to draw the meeting screen.
type StatePayload struct {
	Units       []roster.Unit `json:"units"`
	Mode        roster.Mode   `json:"mode"`
	Version     int           `json:"version"`
	Stats       roster.Stats  `json:"stats"`
	Quorum      bool          `json:"quorum"`
	Blocks      []string      `json:"blocks"`
	PendingSync int           `json:"pendingSync"`
	InFlight    InFlight      `json:"inFlight"`
}

// PushResult is the outcome of sending edited owner names to the sheet.
type PushResult struct {
	Sent          int           `json:"sent"`
	NothingToSend bool          `json:"nothingToSend,omitempty"`
	Message       string        `json:"message"`
	State         *StatePayload `json:"state,omitempty"`
}

type repository interface {
	roster.Persister
	LoadUnits(context.Context) ([]roster.Unit, error)
	WebhookURL(context.Context, string) (string, error)
	SetWebhookURL(context.Context, string) error
	Ping(context.Context) error
}

type webhookClient interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Export(ctx context.Context, url string, units []roster.Unit) error
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type documentAnalyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType string) ([]roster.Unit, error)
}

// Deps are the collaborators of the service. Search and Analyzer may be nil.
type Deps struct {
	Repository *state.Repository
	Webhook    *webhook.Client
	Exporter   *export.Service
	Search     *search.Service
	Analyzer   *analysis.Analyzer
}

type Service struct {
	cfg      config.Config
	store    *roster.Store
	repo     repository
	webhook  webhookClient
	exporter exporter
	search   *search.Service
	analyzer documentAnalyzer

	fetching  atomic.Bool
	syncing   atomic.Bool
	analyzing atomic.Bool
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		repo:     deps.Repository,
		webhook:  deps.Webhook,
		exporter: deps.Exporter,
		search:   deps.Search,
	}
	if deps.Analyzer != nil {
		s.analyzer = deps.Analyzer
	}
	if s.search == nil {
		s.search = search.NewService(nil)
	}
	return s
}

// Bootstrap loads the saved roll and builds the store around it. An
// unreadable backend or a roll with clashing ids falls back to the seed roll;
// the error is still returned so the caller can log it.
func (s *Service) Bootstrap(ctx context.Context) error {
	units, loadErr := s.repo.LoadUnits(ctx)
	if loadErr != nil {
		units = roster.DefaultUnits()
	}
	store, err := roster.NewStore(units, s.repo)
	if err != nil {
		logging.Logger.WithError(err).Warn("saved roll rejected, starting from the seed roll")
		store, err = roster.NewStore(roster.DefaultUnits(), s.repo)
		if err != nil {
			return err
		}
	}
	s.store = store
	s.search.Reindex(store.Snapshot().Units)
	if loadErr != nil {
		return fmt.Errorf("load saved roll: %w", loadErr)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) State() StatePayload {
	return s.payload(s.store.Snapshot())
}

func (s *Service) payload(st roster.State) StatePayload {
	stats := roster.Aggregate(st.Units)
	return StatePayload{
		Units:       st.Units,
		Mode:        st.Mode,
		Version:     st.Version,
		Stats:       stats,
		Quorum:      stats.QuorumMet(),
		Blocks:      roster.Blocks(st.Units),
		PendingSync: len(roster.PendingNameChanges(st.Units)),
		InFlight: InFlight{
			Fetching:  s.fetching.Load(),
			Syncing:   s.syncing.Load(),
			Analyzing: s.analyzing.Load(),
		},
	}
}

// mutate runs a store operation and answers with the resulting state.
func (s *Service) mutate(st roster.State, err error) (StatePayload, error) {
	if err != nil {
		return StatePayload{}, err
	}
	return s.payload(st), nil
}

func (s *Service) TogglePresence(ctx context.Context, id roster.UnitID) (StatePayload, error) {
	return s.mutate(s.store.TogglePresence(ctx, id))
}

func (s *Service) TogglePowerOfAttorney(ctx context.Context, id roster.UnitID) (StatePayload, error) {
	return s.mutate(s.store.TogglePowerOfAttorney(ctx, id))
}

func (s *Service) RenameOwner(ctx context.Context, id roster.UnitID, name string) (StatePayload, error) {
	st, err := s.store.RenameOwner(ctx, id, name)
	if err != nil {
		return StatePayload{}, err
	}
	s.search.Reindex(st.Units)
	return s.payload(st), nil
}

func (s *Service) CycleVote(ctx context.Context, id roster.UnitID) (StatePayload, error) {
	return s.mutate(s.store.CycleVote(ctx, id))
}

func (s *Service) StartVoting(ctx context.Context) (StatePayload, error) {
	return s.mutate(s.store.StartVoting(ctx))
}

func (s *Service) StopVoting(ctx context.Context) (StatePayload, error) {
	return s.mutate(s.store.StopVoting(ctx))
}

func (s *Service) ToggleVoting(ctx context.Context) (StatePayload, error) {
	return s.mutate(s.store.ToggleVoting(ctx))
}

func (s *Service) Reset(ctx context.Context) (StatePayload, error) {
	return s.mutate(s.store.ResetAll(ctx))
}

// ReplaceUnits installs a whole roll from a local import.
func (s *Service) ReplaceUnits(ctx context.Context, units []roster.Unit) (StatePayload, error) {
	if len(units) == 0 {
		return StatePayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "units must not be empty", nil)
	}
	return s.replace(ctx, roster.Prepare(units))
}

func (s *Service) replace(ctx context.Context, units []roster.Unit) (StatePayload, error) {
	st, err := s.store.ReplaceAll(ctx, units)
	if err != nil {
		return StatePayload{}, err
	}
	s.search.Reindex(st.Units)
	return s.payload(st), nil
}

func (s *Service) WebhookURL(ctx context.Context) (string, error) {
	return s.repo.WebhookURL(ctx, s.cfg.WebhookURL)
}

func (s *Service) SetWebhookURL(ctx context.Context, url string) error {
	return s.repo.SetWebhookURL(ctx, url)
}

// begin claims an in-flight flag; the returned func releases it.
func begin(flag *atomic.Bool, operation string) (func(), error) {
	if !flag.CompareAndSwap(false, true) {
		return nil, domainError(http.StatusConflict, "OPERATION_IN_PROGRESS", operation+" is already in progress", nil)
	}
	return func() { flag.Store(false) }, nil
}

// Fetch pulls the whole roll from the sheet. The store is only replaced when
// the response yields rows; any failure leaves it as it was.
func (s *Service) Fetch(ctx context.Context) (StatePayload, error) {
	release, err := begin(&s.fetching, "fetch")
	if err != nil {
		return StatePayload{}, err
	}
	defer release()

	url, err := s.WebhookURL(ctx)
	if err != nil {
		return StatePayload{}, err
	}
	started := time.Now()
	body, err := s.webhook.Fetch(ctx, url)
	if err != nil {
		logging.Logger.WithError(err).Warn("sheet fetch failed")
		return StatePayload{}, err
	}
	units, err := importer.Parse(body)
	if err != nil {
		logging.Logger.WithError(err).Warn("sheet response rejected")
		return StatePayload{}, err
	}
	payload, err := s.replace(ctx, units)
	if err != nil {
		return StatePayload{}, err
	}
	logging.Logger.WithFields(logrus.Fields{
		"units":       len(units),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("roll fetched from sheet")
	return payload, nil
}

// Push sends the units whose owner name was edited and, once the sheet
// accepts them, makes their current names the new baseline.
func (s *Service) Push(ctx context.Context) (PushResult, error) {
	release, err := begin(&s.syncing, "sync")
	if err != nil {
		return PushResult{}, err
	}
	defer release()

	url, err := s.WebhookURL(ctx)
	if err != nil {
		return PushResult{}, err
	}
	if url == "" {
		return PushResult{}, webhook.ErrNotConfigured
	}
	pending := s.store.PendingSync()
	if len(pending) == 0 {
		return PushResult{Sent: 0, NothingToSend: true, Message: "nothing to send"}, nil
	}
	if err := s.webhook.Export(ctx, url, pending); err != nil {
		logging.Logger.WithError(err).WithField("units", len(pending)).Warn("name sync failed")
		return PushResult{}, err
	}
	st, err := s.store.MarkSynced(ctx, roster.IDs(pending))
	if err != nil {
		return PushResult{}, err
	}
	logging.Logger.WithField("units", len(pending)).Info("owner names synced to sheet")
	payload := s.payload(st)
	return PushResult{
		Sent:    len(pending),
		Message: fmt.Sprintf("saved %d name changes", len(pending)),
		State:   &payload,
	}, nil
}

// ImportCSV replaces the roll from an uploaded CSV file.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (StatePayload, error) {
	units, err := importer.ParseCSV(r)
	if err != nil {
		var formatErr *importer.FormatError
		if errors.As(err, &formatErr) {
			if errors.Is(err, importer.ErrNoRows) {
				return StatePayload{}, domainError(http.StatusUnprocessableEntity, "NO_ROWS", "The file contains no rows", nil)
			}
			return StatePayload{}, domainError(http.StatusUnprocessableEntity, "INVALID_FILE", formatErr.Error(), nil)
		}
		return StatePayload{}, err
	}
	return s.replace(ctx, units)
}

// ImportDocument replaces the roll with the units read from a scan or PDF.
func (s *Service) ImportDocument(ctx context.Context, data []byte, mimeType string) (StatePayload, error) {
	if s.analyzer == nil {
		return StatePayload{}, analysis.ErrDisabled
	}
	release, err := begin(&s.analyzing, "document analysis")
	if err != nil {
		return StatePayload{}, err
	}
	defer release()

	units, err := s.analyzer.Analyze(ctx, data, mimeType)
	if err != nil {
		logging.Logger.WithError(err).WithField("mime", mimeType).Warn("document analysis failed")
		return StatePayload{}, err
	}
	return s.replace(ctx, units)
}

func (s *Service) Export(ctx context.Context, format export.Format) (*export.Result, error) {
	return s.exporter.Export(ctx, export.Request{
		Format: format,
		Units:  s.store.Snapshot().Units,
	})
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}
