package app

import (
	"errors"
	"fmt"
	"net/http"

	"prezence/api/internal/analysis"
	"prezence/api/internal/export"
	"prezence/api/internal/importer"
	"prezence/api/internal/roster"
	"prezence/api/internal/webhook"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var transportErr *webhook.TransportError
	var remoteErr *webhook.RemoteError
	var formatErr *importer.FormatError
	switch {
	case errors.Is(err, webhook.ErrNotConfigured):
		return http.StatusUnprocessableEntity, "WEBHOOK_NOT_CONFIGURED", "Webhook URL is not configured", nil
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "WEBHOOK_UNREACHABLE", "Could not reach the webhook", map[string]any{"error": transportErr.Err.Error()}
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "REMOTE_REJECTED", "Webhook rejected the request", map[string]any{
			"status": remoteErr.StatusCode,
			"body":   remoteErr.Body,
		}
	case errors.As(err, &formatErr) && errors.Is(err, importer.ErrNoRows):
		return http.StatusBadGateway, "NO_ROWS", "No list of rows found in the response", nil
	case errors.As(err, &formatErr):
		return http.StatusBadGateway, "INVALID_RESPONSE", "Response is not valid JSON", map[string]any{"raw": formatErr.Raw}
	case errors.Is(err, roster.ErrUnitNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Unit not found", nil
	case errors.Is(err, roster.ErrDuplicateID):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, analysis.ErrDisabled):
		return http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Document analysis is not configured", nil
	case errors.Is(err, analysis.ErrNothingExtracted):
		return http.StatusUnprocessableEntity, "NOTHING_EXTRACTED", "No units could be read from the document", nil
	case errors.Is(err, analysis.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be csv, html, pdf or docx", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
