// Package parser converts raw policy document bytes into a hierarchical
// legal-structure tree with page anchors and a parsing confidence score.
package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joonhokim/yakgwan/internal/errs"
)

// Page is the plain text of one document page.
type Page struct {
	Number int
	Text   string
}

// ValidateDocument checks the uploaded bytes before a job row is created:
// non-empty, within size bound, and carrying a recognized magic byte
// signature. PDF inputs additionally pass a structural check.
func ValidateDocument(data []byte, maxSize int64) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty document", errs.ErrValidation)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return fmt.Errorf("%w: document exceeds %d bytes", errs.ErrValidation, maxSize)
	}

	contentType := http.DetectContentType(data)
	switch {
	case contentType == "application/pdf":
		if _, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
			return fmt.Errorf("%w: malformed PDF: %v", errs.ErrValidation, err)
		}
		return nil
	case strings.HasPrefix(contentType, "text/plain"):
		return nil
	default:
		return fmt.Errorf("%w: unsupported content type %s", errs.ErrValidation, contentType)
	}
}

// ExtractPages pulls per-page plain text out of the document bytes.
// Plain text input becomes a single page. Pages that fail text
// extraction are skipped with a warning, not fatal; a document where
// every page fails yields zero pages and the caller decides fatality.
func ExtractPages(data []byte) ([]Page, error) {
	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "text/plain") {
		return []Page{{Number: 1, Text: string(data)}}, nil
	}
	if contentType != "application/pdf" {
		return nil, fmt.Errorf("%w: unsupported content type %s", errs.ErrValidation, contentType)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("page text extraction failed", "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}
