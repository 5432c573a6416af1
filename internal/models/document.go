// Package models defines data structures for the Yakgwan policy knowledge graph.
package models

import "time"

// ParsedDocument is the hierarchical legal-structure model of a policy
// document: Document -> Article -> Paragraph -> Subclause.
type ParsedDocument struct {
	DocID      string    `json:"doc_id"`
	Insurer    string    `json:"insurer"`
	PolicyName string    `json:"policy_name"`
	LaunchDate *string   `json:"launch_date,omitempty"`
	BlobKey    string    `json:"blob_key"`
	Articles   []Article `json:"articles"`

	// ParsingConfidence is the fraction of input characters attributed
	// to a structural node, in [0,1].
	ParsingConfidence float64 `json:"parsing_confidence"`

	TotalPages      int `json:"total_pages"`
	TotalChars      int `json:"total_chars"`
	TotalArticles   int `json:"total_articles"`
	TotalParagraphs int `json:"total_paragraphs"`
	TotalSubclauses int `json:"total_subclauses"`

	ParsedAt time.Time `json:"parsed_at,omitempty"`
}

// Article is a numbered article ("제N조") within a policy document.
type Article struct {
	Number     int         `json:"number"`
	Title      string      `json:"title,omitempty"`
	Text       string      `json:"text"`
	Page       int         `json:"page"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

// Paragraph is a circled-marker paragraph (①, ②, ...) within an article.
type Paragraph struct {
	Number     int         `json:"number"`
	Text       string      `json:"text"`
	Page       int         `json:"page"`
	Subclauses []Subclause `json:"subclauses,omitempty"`
}

// Subclause is a numbered or lettered item ("1.", "가.") within a paragraph.
type Subclause struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// ClauseRef identifies a provenance unit within a document, down to the
// level that was actually matched.
type ClauseRef struct {
	DocID     string `json:"doc_id"`
	Article   int    `json:"article"`
	Paragraph int    `json:"paragraph,omitempty"`
	Subclause string `json:"subclause,omitempty"`
	Page      int    `json:"page,omitempty"`
}

// JoinText concatenates the raw text of every structural node in document
// order. The result's length bounds the attributed-character count used
// for ParsingConfidence.
func (d *ParsedDocument) JoinText() string {
	var n int
	for _, a := range d.Articles {
		n += len(a.Text)
		for _, p := range a.Paragraphs {
			n += len(p.Text)
			for _, s := range p.Subclauses {
				n += len(s.Text)
			}
		}
	}
	buf := make([]byte, 0, n)
	for _, a := range d.Articles {
		buf = append(buf, a.Text...)
		for _, p := range a.Paragraphs {
			buf = append(buf, p.Text...)
			for _, s := range p.Subclauses {
				buf = append(buf, s.Text...)
			}
		}
	}
	return string(buf)
}

// Recount refreshes the denormalized node counters from the tree.
func (d *ParsedDocument) Recount() {
	d.TotalArticles = len(d.Articles)
	d.TotalParagraphs = 0
	d.TotalSubclauses = 0
	for _, a := range d.Articles {
		d.TotalParagraphs += len(a.Paragraphs)
		for _, p := range a.Paragraphs {
			d.TotalSubclauses += len(p.Subclauses)
		}
	}
}

// Validate checks the tree invariants: page anchors are non-decreasing
// within a parent and confidence is within [0,1].
func (d *ParsedDocument) Validate() error {
	if d.ParsingConfidence < 0 || d.ParsingConfidence > 1 {
		return ErrInvalidConfidence
	}
	prevPage := 0
	for _, a := range d.Articles {
		if a.Page < prevPage {
			return ErrPageOrder
		}
		prevPage = a.Page
		pp := a.Page
		for _, p := range a.Paragraphs {
			if p.Page < pp {
				return ErrPageOrder
			}
			pp = p.Page
		}
	}
	return nil
}
