// Package export renders tabular course data (attendance reports, enrollment
// rosters) into downloadable CSV or PDF documents.
package export

import (
	"fmt"
	"strings"
)

// Format identifies a document encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "csv" or "pdf" in any case.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type served on download.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Renderer produces document bytes for a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Registry picks the renderer for a format.
type Registry struct {
	csv Renderer
	pdf Renderer
}

// NewRegistry wires the CSV and PDF renderers.
func NewRegistry() *Registry {
	return &Registry{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render encodes data in the requested format.
func (r *Registry) Render(format Format, data Dataset) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.Render(data)
	case FormatPDF:
		return r.pdf.Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
