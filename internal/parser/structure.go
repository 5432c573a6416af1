package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joonhokim/yakgwan/internal/errs"
	"github.com/joonhokim/yakgwan/internal/models"
)

// articlePattern matches Korean statute-style article headings at the
// start of a line: "제1조(목적)", "제 12 조 (보험금의 지급)".
var articlePattern = regexp.MustCompile(`^제\s*(\d+)\s*조(?:\s*\(([^)]*)\))?`)

// subclausePattern matches numbered or lettered items within a
// paragraph: "1. ...", "가. ...".
var subclausePattern = regexp.MustCompile(`^(\d+|[가-힣])\.\s`)

// circledDigits maps paragraph markers ①-⑮ to their ordinal.
var circledDigits = map[rune]int{
	'①': 1, '②': 2, '③': 3, '④': 4, '⑤': 5,
	'⑥': 6, '⑦': 7, '⑧': 8, '⑨': 9, '⑩': 10,
	'⑪': 11, '⑫': 12, '⑬': 13, '⑭': 14, '⑮': 15,
}

// Config controls structure extraction.
type Config struct {
	// DegradedThreshold is the parsing confidence below which the
	// stage reports degraded output.
	DegradedThreshold float64

	// MinMarkerDensity is the minimum article markers per 10k chars
	// before the pattern pass is trusted; below it the layout
	// heuristic runs instead (scanned documents with noisy OCR).
	MinMarkerDensity float64
}

// DefaultConfig returns the standard extraction thresholds.
func DefaultConfig() Config {
	return Config{
		DegradedThreshold: 0.5,
		MinMarkerDensity:  0.3,
	}
}

// Meta carries the source document reference into the parsed tree.
type Meta struct {
	DocID      string
	Insurer    string
	PolicyName string
	LaunchDate *string
	BlobKey    string
}

// ParseStructure builds the legal-structure tree from extracted pages.
// Returns ErrExtractionFailed when no text at all was extracted; a
// low-confidence parse wraps ErrExtractionDegraded but still returns
// the document, so the pipeline can continue with a thin structure.
func ParseStructure(meta Meta, pages []Page, cfg Config) (*models.ParsedDocument, error) {
	totalChars := 0
	for _, p := range pages {
		totalChars += len(strings.TrimSpace(p.Text))
	}
	if totalChars == 0 {
		return nil, fmt.Errorf("%w: no text extracted from document", errs.ErrExtractionFailed)
	}

	doc := &models.ParsedDocument{
		DocID:      meta.DocID,
		Insurer:    meta.Insurer,
		PolicyName: meta.PolicyName,
		LaunchDate: meta.LaunchDate,
		BlobKey:    meta.BlobKey,
		TotalPages: lastPageNumber(pages),
		TotalChars: totalChars,
		ParsedAt:   time.Now().UTC(),
	}

	markers := countArticleMarkers(pages)
	density := float64(markers) / float64(totalChars) * 10_000
	if density < cfg.MinMarkerDensity {
		parseByLayout(doc, pages)
	} else {
		parseByPattern(doc, pages)
	}

	doc.Recount()

	attributed := len(doc.JoinText())
	doc.ParsingConfidence = float64(attributed) / float64(totalChars)
	if doc.ParsingConfidence > 1 {
		doc.ParsingConfidence = 1
	}

	if doc.ParsingConfidence < cfg.DegradedThreshold {
		return doc, fmt.Errorf("%w: parsing confidence %.2f below threshold %.2f",
			errs.ErrExtractionDegraded, doc.ParsingConfidence, cfg.DegradedThreshold)
	}
	return doc, nil
}

func lastPageNumber(pages []Page) int {
	if len(pages) == 0 {
		return 0
	}
	return pages[len(pages)-1].Number
}

func countArticleMarkers(pages []Page) int {
	n := 0
	for _, p := range pages {
		for _, line := range strings.Split(p.Text, "\n") {
			if articlePattern.MatchString(strings.TrimSpace(line)) {
				n++
			}
		}
	}
	return n
}

// builder tracks the currently open nodes while boundaries are scanned.
// Each recognized boundary closes the previous node and opens the next;
// text between boundaries accumulates on the innermost open node.
type builder struct {
	doc  *models.ParsedDocument
	art  *models.Article
	par  *models.Paragraph
	sub  *models.Subclause
}

func (b *builder) openArticle(num int, title string, page int, line string) {
	b.flush()

	// Duplicate article numbers are OCR re-detection noise; treat as
	// continuation of the existing article rather than overwrite.
	for i := range b.doc.Articles {
		if b.doc.Articles[i].Number == num {
			b.art = &b.doc.Articles[i]
			b.par, b.sub = nil, nil
			b.art.Text += "\n" + line
			return
		}
	}

	b.doc.Articles = append(b.doc.Articles, models.Article{
		Number: num,
		Title:  title,
		Text:   line,
		Page:   page,
	})
	b.art = &b.doc.Articles[len(b.doc.Articles)-1]
	b.par, b.sub = nil, nil
}

func (b *builder) openParagraph(num, page int, line string) {
	if b.art == nil {
		return
	}
	b.flush()
	b.art.Paragraphs = append(b.art.Paragraphs, models.Paragraph{
		Number: num,
		Text:   line,
		Page:   page,
	})
	b.par = &b.art.Paragraphs[len(b.art.Paragraphs)-1]
	b.sub = nil
}

func (b *builder) openSubclause(label string, page int, line string) {
	if b.par == nil {
		return
	}
	b.flush()
	b.par.Subclauses = append(b.par.Subclauses, models.Subclause{
		Label: label,
		Text:  line,
		Page:  page,
	})
	b.sub = &b.par.Subclauses[len(b.par.Subclauses)-1]
}

// appendText attaches a continuation line to the innermost open node so
// unattributed trailing text is kept rather than discarded.
func (b *builder) appendText(line string) bool {
	switch {
	case b.sub != nil:
		b.sub.Text += "\n" + line
	case b.par != nil:
		b.par.Text += "\n" + line
	case b.art != nil:
		b.art.Text += "\n" + line
	default:
		return false
	}
	return true
}

// flush re-resolves interior pointers. Paragraph/subclause slices may
// have been reallocated by append since the pointer was taken.
func (b *builder) flush() {
	if b.art != nil && len(b.doc.Articles) > 0 {
		for i := range b.doc.Articles {
			if b.doc.Articles[i].Number == b.art.Number {
				b.art = &b.doc.Articles[i]
				break
			}
		}
		if b.par != nil && len(b.art.Paragraphs) > 0 {
			b.par = &b.art.Paragraphs[len(b.art.Paragraphs)-1]
			if b.sub != nil && len(b.par.Subclauses) > 0 {
				b.sub = &b.par.Subclauses[len(b.par.Subclauses)-1]
			}
		}
	}
}

// parseByPattern runs the fast marker-based pass.
func parseByPattern(doc *models.ParsedDocument, pages []Page) {
	b := &builder{doc: doc}

	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}

			if m := articlePattern.FindStringSubmatch(trimmed); m != nil {
				num, _ := strconv.Atoi(m[1])
				b.openArticle(num, m[2], page.Number, trimmed)
				continue
			}

			if num, rest, ok := splitCircledMarker(trimmed); ok {
				b.openParagraph(num, page.Number, rest)
				continue
			}

			if b.par != nil {
				if m := subclausePattern.FindStringSubmatch(trimmed); m != nil {
					b.openSubclause(m[1], page.Number, trimmed)
					continue
				}
			}

			b.appendText(trimmed)
		}
	}
}

// parseByLayout is the fallback for documents whose marker density is
// too low to trust the pattern pass. Short heading-like lines open
// synthetic articles so downstream stages still get page-anchored
// clauses to work with.
func parseByLayout(doc *models.ParsedDocument, pages []Page) {
	b := &builder{doc: doc}
	nextNum := 1

	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}

			if looksLikeHeading(trimmed) {
				b.openArticle(nextNum, "", page.Number, trimmed)
				nextNum++
				continue
			}
			if !b.appendText(trimmed) {
				// Text before any heading: open an untitled article
				// so nothing is dropped.
				b.openArticle(nextNum, "", page.Number, trimmed)
				nextNum++
			}
		}
	}
}

// looksLikeHeading reports whether a line reads like a section heading:
// short, not ending in sentence punctuation, and not starting with a
// list marker.
func looksLikeHeading(line string) bool {
	runes := []rune(line)
	if len(runes) == 0 || len(runes) > 30 {
		return false
	}
	last := runes[len(runes)-1]
	if last == '.' || last == '다' || last == ',' || last == ';' {
		return false
	}
	if _, _, ok := splitCircledMarker(line); ok {
		return false
	}
	return !subclausePattern.MatchString(line)
}

// splitCircledMarker detects a circled-digit paragraph marker at the
// start of the line and returns its ordinal plus the full line.
func splitCircledMarker(line string) (int, string, bool) {
	runes := []rune(line)
	if len(runes) == 0 {
		return 0, "", false
	}
	if num, ok := circledDigits[runes[0]]; ok {
		return num, line, true
	}
	return 0, "", false
}
