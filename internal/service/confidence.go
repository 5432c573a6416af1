package service

import (
	"regexp"
	"strconv"
	"strings"
)

// ConfidenceWeights controls the relative importance of confidence factors.
type ConfidenceWeights struct {
	SourceCoverage   float64 // how many retrieved sources the answer references
	CitationAccuracy float64 // how many citations verify against the evidence
	SelfConsistency  float64 // internal consistency of the answer
	AnswerLength     float64 // whether the answer is substantive
}

// DefaultConfidenceWeights returns balanced weights.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		SourceCoverage:   0.3,
		CitationAccuracy: 0.3,
		SelfConsistency:  0.25,
		AnswerLength:     0.15,
	}
}

// Evidence is one retrieved unit an answer can cite, either a clause or
// an entity. Ref is the citable handle, e.g. "제3조" or a disease code.
type Evidence struct {
	Ref   string `json:"ref"`
	Label string `json:"label"`
	Text  string `json:"text"`
	Page  int    `json:"page,omitempty"`
	DocID string `json:"doc_id"`
}

// Citation is a reference extracted from an answer.
type Citation struct {
	Text      string `json:"text"`       // the citation as written
	SourceRef string `json:"source_ref"` // the referenced handle, e.g. "제3조"
	Verified  bool   `json:"verified"`   // matched against retrieved evidence
}

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`제\s*\d+\s*조(?:의\s*\d+)?`),   // 제3조, 제10조의2
	regexp.MustCompile(`제\s*\d+\s*항`),                // 제2항
	regexp.MustCompile(`[A-Z]\d{2}(?:\.\d{1,2})?`),   // C77, I21.4
	regexp.MustCompile(`(\d+)\s*(?:페이지|쪽)`),          // 12페이지, 3쪽
	regexp.MustCompile(`(?:Page|p\.)\s*(\d+)`),       // Page 12
}

// ExtractCitations finds citation references in an answer and verifies
// each against the retrieved evidence.
func ExtractCitations(answer string, evidence []Evidence) []Citation {
	var citations []Citation
	seen := make(map[string]bool)

	for _, pattern := range citationPatterns {
		for _, match := range pattern.FindAllStringSubmatch(answer, -1) {
			ref := strings.TrimSpace(match[0])
			if seen[ref] {
				continue
			}
			seen[ref] = true

			sourceRef := ref
			if len(match) > 1 && match[1] != "" {
				sourceRef = match[1]
			}

			citations = append(citations, Citation{
				Text:      ref,
				SourceRef: sourceRef,
				Verified:  verifyCitation(sourceRef, evidence),
			})
		}
	}

	return citations
}

// verifyCitation checks a reference against the evidence refs, labels,
// texts and page numbers.
func verifyCitation(ref string, evidence []Evidence) bool {
	normalized := strings.ReplaceAll(ref, " ", "")

	for _, ev := range evidence {
		if strings.Contains(strings.ReplaceAll(ev.Ref, " ", ""), normalized) {
			return true
		}
		if ev.Label != "" && strings.Contains(strings.ReplaceAll(ev.Label, " ", ""), normalized) {
			return true
		}
		if ev.Text != "" && strings.Contains(strings.ReplaceAll(ev.Text, " ", ""), normalized) {
			return true
		}
	}

	if page, err := strconv.Atoi(ref); err == nil && page > 0 {
		for _, ev := range evidence {
			if ev.Page == page {
				return true
			}
		}
	}

	return false
}

// ComputeConfidence scores an answer against the evidence it was
// synthesized from. Returns a value in [0, 1]; an empty evidence set
// always scores 0.
func ComputeConfidence(answer string, evidence []Evidence, weights ConfidenceWeights) float64 {
	if len(evidence) == 0 {
		return 0
	}

	confidence := sourceCoverageScore(answer, evidence)*weights.SourceCoverage +
		citationAccuracyScore(answer, evidence)*weights.CitationAccuracy +
		selfConsistencyScore(answer)*weights.SelfConsistency +
		answerLengthScore(answer)*weights.AnswerLength

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// sourceCoverageScore measures what fraction of the top sources are
// referenced in the answer.
func sourceCoverageScore(answer string, evidence []Evidence) float64 {
	compact := strings.ReplaceAll(answer, " ", "")
	checkCount := len(evidence)
	if checkCount > 5 {
		checkCount = 5
	}

	referenced := 0
	for _, ev := range evidence[:checkCount] {
		if ev.Ref != "" && strings.Contains(compact, strings.ReplaceAll(ev.Ref, " ", "")) {
			referenced++
			continue
		}
		if ev.Label != "" && strings.Contains(compact, strings.ReplaceAll(ev.Label, " ", "")) {
			referenced++
		}
	}

	return float64(referenced) / float64(checkCount)
}

// citationAccuracyScore measures how many citations verify.
func citationAccuracyScore(answer string, evidence []Evidence) float64 {
	citations := ExtractCitations(answer, evidence)
	if len(citations) == 0 {
		return 0.5 // neutral when the answer cites nothing
	}

	verified := 0
	for _, c := range citations {
		if c.Verified {
			verified++
		}
	}
	return float64(verified) / float64(len(citations))
}

var uncertaintyMarkers = []string{
	"확인할 수 없",
	"알 수 없",
	"판단할 수 없",
	"정보가 부족",
	"근거가 부족",
	"불분명",
	"insufficient",
	"cannot determine",
	"it's unclear",
}

var contradictionMarkers = []string{
	"그러나 한편",
	"모순",
	"상충",
	"contradicts",
	"inconsistent",
}

// selfConsistencyScore penalizes hedging and contradictory language.
func selfConsistencyScore(answer string) float64 {
	lower := strings.ToLower(answer)
	score := 1.0

	for _, m := range contradictionMarkers {
		if strings.Contains(lower, m) {
			score -= 0.15
		}
	}
	for _, m := range uncertaintyMarkers {
		if strings.Contains(lower, m) {
			score -= 0.2
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// answerLengthScore favors substantive answers. Counted in runes since
// Korean prose rarely separates words the way Fields expects.
func answerLengthScore(answer string) float64 {
	runes := len([]rune(strings.TrimSpace(answer)))
	switch {
	case runes < 20:
		return 0.2
	case runes < 80:
		return 0.5
	case runes < 400:
		return 0.8
	case runes < 2000:
		return 1.0
	default:
		return 0.9
	}
}
