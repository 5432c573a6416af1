package extract

import (
	"sort"

	"github.com/joonhokim/yakgwan/internal/models"
)

const (
	// DefaultMaxAmount bounds accepted monetary values at 100억원.
	// Anything larger in a retail policy text is OCR noise.
	DefaultMaxAmount int64 = 10_000_000_000

	// DefaultContextWindow is the number of runes kept on each side of
	// an extracted item.
	DefaultContextWindow = 40
)

// Config controls extraction bounds.
type Config struct {
	MaxAmount     int64
	ContextWindow int
}

// DefaultConfig returns the standard extraction bounds.
func DefaultConfig() Config {
	return Config{
		MaxAmount:     DefaultMaxAmount,
		ContextWindow: DefaultContextWindow,
	}
}

// Run scans the flat document text and returns all critical data.
// Each sequence is sorted by offset with duplicates at the same offset
// removed, so offsets are strictly increasing.
func Run(text string, cfg Config) *models.ExtractionResult {
	if cfg.MaxAmount == 0 {
		cfg.MaxAmount = DefaultMaxAmount
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = DefaultContextWindow
	}

	res := &models.ExtractionResult{
		Amounts: Amounts(text, cfg.MaxAmount, cfg.ContextWindow),
		Periods: Periods(text, cfg.ContextWindow),
		Codes:   Codes(text, cfg.ContextWindow),
	}

	sort.Slice(res.Amounts, func(i, j int) bool { return res.Amounts[i].Offset < res.Amounts[j].Offset })
	sort.Slice(res.Periods, func(i, j int) bool { return res.Periods[i].Offset < res.Periods[j].Offset })
	sort.Slice(res.Codes, func(i, j int) bool { return res.Codes[i].Offset < res.Codes[j].Offset })

	res.Amounts = dedupeAmounts(res.Amounts)
	res.Periods = dedupePeriods(res.Periods)
	res.Codes = dedupeCodes(res.Codes)
	return res
}

func dedupeAmounts(in []models.Amount) []models.Amount {
	out := in[:0]
	prev := -1
	for _, a := range in {
		if a.Offset != prev {
			out = append(out, a)
			prev = a.Offset
		}
	}
	return out
}

func dedupePeriods(in []models.Period) []models.Period {
	out := in[:0]
	prev := -1
	for _, p := range in {
		if p.Offset != prev {
			out = append(out, p)
			prev = p.Offset
		}
	}
	return out
}

func dedupeCodes(in []models.Code) []models.Code {
	out := in[:0]
	prev := -1
	for _, c := range in {
		if c.Offset != prev {
			out = append(out, c)
			prev = c.Offset
		}
	}
	return out
}
