// Package export renders a stored report as a printable document.
package export

import "errors"

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates the headless browser is not installed.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
