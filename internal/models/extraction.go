package models

// ExtractionResult holds the critical data pulled from a document's flat
// text: monetary amounts, time periods, and classification codes. Each
// sequence is ordered by character offset.
type ExtractionResult struct {
	Amounts []Amount `json:"amounts"`
	Periods []Period `json:"periods"`
	Codes   []Code   `json:"codes"`
}

// Amount is a monetary amount normalized to an integer in won.
type Amount struct {
	Raw     string `json:"raw"`
	Value   int64  `json:"value"`
	Context string `json:"context"`
	Offset  int    `json:"offset"`
}

// Period is a time period normalized to integer days.
type Period struct {
	Raw     string `json:"raw"`
	Days    int    `json:"days"`
	Context string `json:"context"`
	Offset  int    `json:"offset"`
}

// Code is a disease/classification code (KCD style, e.g. "C77").
// Description is nil when the code is not in the known-code table.
type Code struct {
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
	Context     string  `json:"context"`
	Offset      int     `json:"offset"`
}

// Counts returns the number of extracted items per kind, used for the
// document table's denormalized counters.
func (r *ExtractionResult) Counts() (amounts, periods, codes int) {
	return len(r.Amounts), len(r.Periods), len(r.Codes)
}
