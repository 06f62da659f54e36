// Package export renders the roll as a CSV sheet or as the printable meeting
// protocol (HTML, PDF, DOCX).
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"prezence/api/internal/roster"
)

// Format represents the export output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatHTML, FormatPDF, FormatDOCX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Request contains parameters for an export operation
type Request struct {
	Format Format
	Units  []roster.Unit
	// Date stamps the protocol and the file name; zero means now.
	Date time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
