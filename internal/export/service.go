package export

import (
	"context"
	"fmt"
	"time"

	"prezence/api/internal/logging"
	"prezence/api/internal/roster"
)

const (
	mimeHTML = "text/html; charset=utf-8"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Options configures the export service. A nil Archiver disables archiving.
type Options struct {
	ChromePath string
	Archiver   Archiver
	Now        func() time.Time
}

// Service provides roll export functionality
type Service struct {
	chromePath string
	archiver   Archiver
	now        func() time.Time

	// renderers are swapped in tests that have no browser or pandoc.
	pdf  func(ctx context.Context, chromePath, html string) ([]byte, error)
	docx func(ctx context.Context, html string) ([]byte, error)
}

// NewService creates a new export service
func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		chromePath: opts.ChromePath,
		archiver:   opts.Archiver,
		now:        now,
		pdf:        renderPDF,
		docx:       renderDOCX,
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	var (
		result *Result
		err    error
	)
	switch req.Format {
	case FormatCSV:
		result, err = exportCSV(req.Units, date)
	case FormatHTML, FormatPDF, FormatDOCX:
		result, err = s.exportProtocol(ctx, req.Format, req.Units, date)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return nil, err
	}

	s.archive(ctx, date, result)
	return result, nil
}

func (s *Service) exportProtocol(ctx context.Context, format Format, units []roster.Unit, date time.Time) (*Result, error) {
	html, err := RenderProtocolHTML(NewTemplateData(units, date))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatPDF:
		data, err := s.pdf(ctx, s.chromePath, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: protocolFilename(date, "pdf"), MimeType: mimePDF}, nil
	case FormatDOCX:
		data, err := s.docx(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: protocolFilename(date, "docx"), MimeType: mimeDOCX}, nil
	default:
		return &Result{Data: []byte(html), Filename: protocolFilename(date, "html"), MimeType: mimeHTML}, nil
	}
}

// archive stores a copy of result; failures are logged only.
func (s *Service) archive(ctx context.Context, date time.Time, result *Result) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, date, result); err != nil {
		logging.Logger.WithError(err).WithField("filename", result.Filename).Warn("export archive failed")
	}
}
