package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Tree invariant errors, checked by ParsedDocument.Validate.
var (
	ErrInvalidConfidence = errors.New("parsing confidence outside [0,1]")
	ErrPageOrder         = errors.New("page anchors decrease within parent")
)

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// MustRecordIDString extracts the string ID, panicking if not a string.
// Use only after DB operations that are known to return string IDs.
func MustRecordIDString(id surrealmodels.RecordID) string {
	s, err := RecordIDString(id)
	if err != nil {
		panic(err)
	}
	return s
}

// EntityID derives the stable, globally unique entity ID for the index-th
// entity extracted from a document. The same document and index always
// produce the same ID, which is what makes re-ingestion idempotent.
func EntityID(docID string, index int) string {
	return fmt.Sprintf("%s-e%d", docID, index)
}

// ClauseID derives a stable ID for a provenance clause node.
func ClauseID(ref ClauseRef) string {
	id := fmt.Sprintf("%s-a%d", ref.DocID, ref.Article)
	if ref.Paragraph > 0 {
		id += fmt.Sprintf("-p%d", ref.Paragraph)
	}
	if ref.Subclause != "" {
		id += "-s" + Slugify(ref.Subclause)
	}
	return id
}

// Slugify lowercases s and replaces whitespace and underscores with
// hyphens, stripping punctuation. Letters and numbers of any script
// survive; labels are mostly Korean and must not collapse to nothing.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// String renders a clause reference like "doc-1 제3조 ②항 1호".
func (c ClauseRef) String() string {
	s := fmt.Sprintf("%s 제%d조", c.DocID, c.Article)
	if c.Paragraph > 0 {
		s += fmt.Sprintf(" %d항", c.Paragraph)
	}
	if c.Subclause != "" {
		s += " " + c.Subclause + "호"
	}
	return s
}
