package extract

import (
	"regexp"
	"strconv"

	"github.com/joonhokim/yakgwan/internal/models"
)

// periodPattern matches day/week/month/year idioms: "90일", "2주",
// "3개월", "1년". 개월 must come before 월-less forms so "개월" is not
// split; 일 alone is ambiguous with dates, so it requires a digit prefix.
var periodPattern = regexp.MustCompile(`([0-9][0-9,]*)\s*(일|주|개월|년)`)

// daysPerUnit is the deterministic normalization table: months count as
// 30 days and years as 365, matching how policy waiting periods are
// conventionally compared.
var daysPerUnit = map[string]int{
	"일":  1,
	"주":  7,
	"개월": 30,
	"년":  365,
}

// Periods extracts time periods from text, normalized to integer days.
func Periods(text string, window int) []models.Period {
	var out []models.Period
	for _, loc := range periodPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		numStr := text[loc[2]:loc[3]]
		unit := text[loc[4]:loc[5]]

		n, err := strconv.Atoi(removeCommas(numStr))
		if err != nil || n <= 0 {
			continue
		}

		out = append(out, models.Period{
			Raw:     raw,
			Days:    n * daysPerUnit[unit],
			Context: contextWindow(text, loc[0], loc[1], window),
			Offset:  loc[0],
		})
	}
	return out
}

func removeCommas(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			b = append(b, s[i])
		}
	}
	return string(b)
}
