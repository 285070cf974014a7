// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfutil inspects PDF files with pdfcpu: structural validation
// after download and page counts before conversion.
package pdfutil

import (
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MIMEType is the media type of a PDF document.
const MIMEType = "application/pdf"

// config returns a pdfcpu configuration that does not touch the user's
// config directory and tolerates the minor defects common in publisher PDFs.
func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate reports whether path is a structurally valid PDF.
func Validate(path string) error {
	if err := api.ValidateFile(path, config()); err != nil {
		return fmt.Errorf("invalid PDF %s: %w", path, err)
	}
	return nil
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := api.PageCount(f, config())
	if err != nil {
		return 0, fmt.Errorf("reading page count of %s: %w", path, err)
	}
	return n, nil
}

// IsPDF reports whether data starts like a PDF document.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is(MIMEType)
}

// IsHTML reports whether data sniffs as an HTML or XHTML page.
func IsHTML(data []byte) bool {
	m := mimetype.Detect(data)
	return m.Is("text/html") || m.Is("application/xhtml+xml")
}

// IsHTMLContentType reports whether a Content-Type header names an HTML
// or XHTML document.
func IsHTMLContentType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
