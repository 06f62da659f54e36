package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"prezence/api/internal/export"
	"prezence/api/internal/logging"
	"prezence/api/internal/roster"
	"prezence/api/internal/search"
	"prezence/api/internal/util"
)

const (
	maxJSONBody   = 5 << 20
	maxUploadBody = 20 << 20
)

var validate = validator.New()

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Head("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Head("/ready", s.handleReady)

		r.Get("/state", s.handleState)
		r.Put("/units", s.handleReplaceUnits)
		r.Route("/units/{id}", func(r chi.Router) {
			r.Post("/presence", s.unitAction(s.service.TogglePresence))
			r.Post("/power-of-attorney", s.unitAction(s.service.TogglePowerOfAttorney))
			r.Post("/vote", s.unitAction(s.service.CycleVote))
			r.Put("/owner", s.handleRenameOwner)
		})

		r.Post("/voting/start", s.action(s.service.StartVoting))
		r.Post("/voting/stop", s.action(s.service.StopVoting))
		r.Post("/voting/toggle", s.action(s.service.ToggleVoting))
		r.Post("/reset", s.action(s.service.Reset))

		r.Get("/settings/webhook", s.handleGetWebhook)
		r.Put("/settings/webhook", s.handlePutWebhook)

		r.Post("/sync/fetch", s.action(s.service.Fetch))
		r.Post("/sync/push", s.handlePush)

		r.Post("/import/csv", s.handleImportCSV)
		r.Post("/import/document", s.handleImportDocument)

		r.Get("/export/{format}", s.handleExport)
		r.Get("/search", s.handleSearch)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins(s.corsOrigin),
		AllowedMethods: []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})
	return s.withMiddleware(c.Handler(r))
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"state": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["state"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.State())
}

// action adapts a whole-roll operation into a handler.
func (s *HTTPServer) action(fn func(context.Context) (StatePayload, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fn(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

// unitAction adapts a single-unit operation keyed by the {id} URL param.
func (s *HTTPServer) unitAction(fn func(context.Context, roster.UnitID) (StatePayload, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fn(r.Context(), unitIDParam(r))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *HTTPServer) handleReplaceUnits(w http.ResponseWriter, r *http.Request) {
	var units []roster.Unit
	if err := decodeBody(w, r, &units); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.ReplaceUnits(r.Context(), units)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleRenameOwner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerName string `json:"ownerName" validate:"required,max=200"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.OwnerName = strings.TrimSpace(body.OwnerName)
	if err := validate.Struct(body); err != nil {
		writeValidationError(w, err)
		return
	}
	payload, err := s.service.RenameOwner(r.Context(), unitIDParam(r), body.OwnerName)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	webhookURL, err := s.service.WebhookURL(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": webhookURL, "configured": webhookURL != ""})
}

func (s *HTTPServer) handlePutWebhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url" validate:"omitempty,url"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if err := validate.Struct(body); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.service.SetWebhookURL(r.Context(), body.URL); err != nil {
		writeMappedError(w, err)
		return
	}
	s.handleGetWebhook(w, r)
}

func (s *HTTPServer) handlePush(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Push(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	var source io.Reader = r.Body
	if isMultipart(r) {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "file is required", nil)
			return
		}
		defer file.Close()
		source = file
	}
	payload, err := s.service.ImportCSV(r.Context(), source)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleImportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected a multipart upload", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read the upload", nil)
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	payload, err := s.service.ImportDocument(r.Context(), data, mimeType)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	result, err := s.service.Export(r.Context(), format)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query struct {
		Text  string `validate:"max=200"`
		Block string `validate:"max=50"`
		Limit int    `validate:"min=0,max=100"`
	}
	query.Text = strings.TrimSpace(r.URL.Query().Get("q"))
	query.Block = strings.TrimSpace(r.URL.Query().Get("block"))
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		query.Limit = parsed
	}
	if err := validate.Struct(query); err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(search.Query{
		Text:  query.Text,
		Block: query.Block,
		Limit: query.Limit,
	}))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(writer, r)

		logging.Logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsOrigins(origin string) []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func unitIDParam(r *http.Request) roster.UnitID {
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return roster.UnitID(raw)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && code == "SERVER_ERROR" {
		logging.Logger.WithError(err).Error("unhandled error")
	}
	writeError(w, status, code, message, details)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", map[string]any{"fields": fields})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
