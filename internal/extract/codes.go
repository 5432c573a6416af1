package extract

import (
	"regexp"

	"github.com/joonhokim/yakgwan/internal/models"
)

// codePattern matches KCD-style classification codes: a capital letter,
// two digits, and an optional decimal subdivision ("C77", "C50.9").
var codePattern = regexp.MustCompile(`\b([A-Z][0-9]{2}(?:\.[0-9]{1,2})?)\b`)

// knownCodes maps KCD codes to Korean descriptions. Codes outside the
// table are kept with a nil description rather than dropped; resolution
// is best-effort, auditability is not.
var knownCodes = map[string]string{
	"C16": "위의 악성 신생물",
	"C18": "결장의 악성 신생물",
	"C22": "간 및 간내 담관의 악성 신생물",
	"C34": "기관지 및 폐의 악성 신생물",
	"C50": "유방의 악성 신생물",
	"C61": "전립선의 악성 신생물",
	"C73": "갑상선의 악성 신생물",
	"C77": "림프절의 이차성 및 상세불명의 악성 신생물",
	"D05": "유방의 상피내 암종",
	"E11": "2형 당뇨병",
	"I21": "급성 심근경색증",
	"I63": "뇌경색증",
	"J44": "기타 만성 폐쇄성 폐질환",
	"N18": "만성 신장병",
}

// LookupCode resolves a classification code against the known-code table.
// The subdivision is stripped first, so "C50.9" resolves via "C50".
func LookupCode(code string) (string, bool) {
	if desc, ok := knownCodes[code]; ok {
		return desc, true
	}
	if len(code) > 3 {
		if desc, ok := knownCodes[code[:3]]; ok {
			return desc, true
		}
	}
	return "", false
}

// Codes extracts classification codes from text.
func Codes(text string, window int) []models.Code {
	var out []models.Code
	for _, loc := range codePattern.FindAllStringSubmatchIndex(text, -1) {
		code := text[loc[2]:loc[3]]

		item := models.Code{
			Code:    code,
			Context: contextWindow(text, loc[0], loc[1], window),
			Offset:  loc[0],
		}
		if desc, ok := LookupCode(code); ok {
			item.Description = &desc
		}
		out = append(out, item)
	}
	return out
}
