// Package extract scans policy text for critical data: monetary amounts,
// time periods, and disease classification codes. Every extracted item
// keeps a context window and character offset so a reviewer can verify it
// without reopening the source document.
package extract

import (
	"regexp"
	"strings"

	"github.com/joonhokim/yakgwan/internal/models"
)

// amountPattern matches Korean monetary idioms: "5천만원", "1억2천만원",
// "5,000만원", "10만원", "300원". The captured group is the numeral body
// without the trailing 원.
var amountPattern = regexp.MustCompile(`([0-9][0-9,억천백십만]*)원`)

// Amounts extracts monetary amounts from text, normalized to won.
// Values outside (0, maxAmount] parse but are dropped as false positives.
func Amounts(text string, maxAmount int64, window int) []models.Amount {
	var out []models.Amount
	for _, loc := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		body := text[loc[2]:loc[3]]

		value, ok := parseKoreanNumeral(body)
		if !ok || value <= 0 || value > maxAmount {
			continue
		}

		out = append(out, models.Amount{
			Raw:     raw,
			Value:   value,
			Context: contextWindow(text, loc[0], loc[1], window),
			Offset:  loc[0],
		})
	}
	return out
}

// parseKoreanNumeral converts a numeral body like "1억2천만" or "5,000만"
// to an integer. The grammar is positional: an optional 억 segment, an
// optional 만 segment, then a plain remainder, each segment itself using
// 천/백/십 multipliers.
func parseKoreanNumeral(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")

	var total int64
	if i := strings.Index(s, "억"); i >= 0 {
		head, ok := parseSmallNumeral(s[:i])
		if !ok {
			return 0, false
		}
		total += head * 100_000_000
		s = s[i+len("억"):]
	}
	if i := strings.Index(s, "만"); i >= 0 {
		head, ok := parseSmallNumeral(s[:i])
		if !ok {
			return 0, false
		}
		total += head * 10_000
		s = s[i+len("만"):]
	}
	if s != "" {
		tail, ok := parseSmallNumeral(s)
		if !ok {
			return 0, false
		}
		total += tail
	}
	return total, total > 0
}

// parseSmallNumeral parses a sub-만 segment like "5천", "1천2백", "5000".
// An empty segment before a unit ("억" alone) counts as 1, matching how
// the idiom is written.
func parseSmallNumeral(s string) (int64, bool) {
	if s == "" {
		return 1, true
	}

	units := []struct {
		marker string
		mult   int64
	}{
		{"천", 1000},
		{"백", 100},
		{"십", 10},
	}

	var total int64
	for _, u := range units {
		i := strings.Index(s, u.marker)
		if i < 0 {
			continue
		}
		head := s[:i]
		n := int64(1)
		if head != "" {
			var ok bool
			n, ok = parseDigits(head)
			if !ok {
				return 0, false
			}
		}
		total += n * u.mult
		s = s[i+len(u.marker):]
	}

	if s != "" {
		n, ok := parseDigits(s)
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

func parseDigits(s string) (int64, bool) {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int64(r-'0')
		if n > 1<<52 {
			return 0, false
		}
	}
	return n, true
}

// contextWindow returns up to window runes of surrounding text on each
// side of [start,end), rune-aligned so multi-byte Hangul never splits.
func contextWindow(text string, start, end, window int) string {
	left := start
	for n := 0; left > 0 && n < window; n++ {
		left--
		for left > 0 && !isRuneStart(text[left]) {
			left--
		}
	}
	right := end
	for n := 0; right < len(text) && n < window; n++ {
		right++
		for right < len(text) && !isRuneStart(text[right]) {
			right++
		}
	}
	return strings.TrimSpace(text[left:right])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
