package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/joonhokim/yakgwan/internal/errs"
)

func testMeta() Meta {
	return Meta{
		DocID:      "test-doc",
		Insurer:    "테스트생명",
		PolicyName: "암보험 표준약관",
		BlobKey:    "documents/test-doc.pdf",
	}
}

func threeArticlePages() []Page {
	return []Page{
		{Number: 1, Text: "제1조(목적) 이 약관은 보험계약의 성립과 효력에 관한 사항을 정한다.\n" +
			"이 약관에서 정하지 않은 사항은 관계 법령에 따른다."},
		{Number: 2, Text: "제2조(보험금의 지급)\n" +
			"① 회사는 피보험자가 암으로 진단확정된 경우 다음과 같이 지급한다.\n" +
			"1. 진단보험금 5,000만원\n" +
			"2. 입원보험금 1일당 10만원\n" +
			"② 보험금은 청구일부터 3영업일 이내에 지급한다."},
		{Number: 3, Text: "제3조(보험금을 지급하지 않는 사유)\n" +
			"① 피보험자의 고의로 인한 경우에는 보험금을 지급하지 않는다."},
	}
}

func TestParseStructureThreeArticles(t *testing.T) {
	doc, err := ParseStructure(testMeta(), threeArticlePages(), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}

	if doc.TotalArticles != 3 {
		t.Fatalf("TotalArticles = %d, want 3", doc.TotalArticles)
	}
	if doc.Articles[0].Number != 1 || doc.Articles[0].Title != "목적" {
		t.Errorf("article 1 = %+v", doc.Articles[0])
	}

	art2 := doc.Articles[1]
	if len(art2.Paragraphs) != 2 {
		t.Fatalf("article 2 paragraphs = %d, want 2", len(art2.Paragraphs))
	}
	if len(art2.Paragraphs[0].Subclauses) != 2 {
		t.Errorf("article 2 ① subclauses = %d, want 2", len(art2.Paragraphs[0].Subclauses))
	}

	// Page anchors follow source order.
	if doc.Articles[0].Page != 1 || doc.Articles[1].Page != 2 || doc.Articles[2].Page != 3 {
		t.Errorf("page anchors = %d/%d/%d, want 1/2/3",
			doc.Articles[0].Page, doc.Articles[1].Page, doc.Articles[2].Page)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("tree invariants violated: %v", err)
	}
}

func TestParseStructureConfidence(t *testing.T) {
	doc, err := ParseStructure(testMeta(), threeArticlePages(), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}

	if doc.ParsingConfidence <= 0.5 || doc.ParsingConfidence > 1 {
		t.Errorf("ParsingConfidence = %v, want (0.5, 1]", doc.ParsingConfidence)
	}

	// Round-trip property: rejoined text length covers at least
	// confidence * total chars.
	joined := doc.JoinText()
	if float64(len(joined)) < doc.ParsingConfidence*float64(doc.TotalChars) {
		t.Errorf("joined length %d < confidence bound %v",
			len(joined), doc.ParsingConfidence*float64(doc.TotalChars))
	}
}

func TestParseStructureNoText(t *testing.T) {
	_, err := ParseStructure(testMeta(), nil, DefaultConfig())
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Errorf("err = %v, want ErrExtractionFailed", err)
	}

	_, err = ParseStructure(testMeta(), []Page{}, DefaultConfig())
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Errorf("empty pages: err = %v, want ErrExtractionFailed", err)
	}

	_, err = ParseStructure(testMeta(), []Page{{Number: 1, Text: "  \n\t "}}, DefaultConfig())
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Errorf("whitespace-only pages: err = %v, want ErrExtractionFailed", err)
	}
}

func TestParseStructureDuplicateArticleAppends(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "제1조(목적) 첫 번째 본문이다.\n제1조(목적) OCR이 다시 읽은 같은 조항이다."},
	}

	doc, err := ParseStructure(testMeta(), pages, DefaultConfig())
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if len(doc.Articles) != 1 {
		t.Fatalf("duplicate article number created %d articles, want 1", len(doc.Articles))
	}
	if !strings.Contains(doc.Articles[0].Text, "다시 읽은") {
		t.Error("duplicate detection dropped the re-detected text instead of appending")
	}
}

func TestParseStructureTrailingTextKept(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "제1조(목적) 본문.\n끝에 붙은 비정형 문장은 버리지 않는다."},
	}
	doc, err := ParseStructure(testMeta(), pages, DefaultConfig())
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if !strings.Contains(doc.JoinText(), "버리지 않는다") {
		t.Error("trailing unattributed text was discarded")
	}
}

func TestParseStructureLayoutFallback(t *testing.T) {
	// No 제N조 markers at all: the layout heuristic should still carve
	// out heading-anchored sections rather than return nothing.
	pages := []Page{
		{Number: 1, Text: "보장내용 안내\n이 상품은 암 진단시 보험금을 지급합니다.\n" +
			"유의사항\n계약 전 알릴 의무를 위반하면 계약이 해지될 수 있습니다."},
	}

	doc, err := ParseStructure(testMeta(), pages, DefaultConfig())
	if err != nil && !errors.Is(err, errs.ErrExtractionDegraded) {
		t.Fatalf("ParseStructure: %v", err)
	}
	if doc == nil || len(doc.Articles) == 0 {
		t.Fatal("layout fallback produced no articles")
	}
}

func TestParseStructureDegradedNotFatal(t *testing.T) {
	// A large preamble before the first article marker is not
	// attributable to any clause: confidence drops below threshold,
	// the stage degrades but still returns a document.
	noise := strings.Repeat("……………………………………다. ", 80)
	pages := []Page{
		{Number: 1, Text: noise + "\n제1조(목적) 본문."},
	}

	cfg := DefaultConfig()
	cfg.MinMarkerDensity = 0 // force the pattern pass

	doc, err := ParseStructure(testMeta(), pages, cfg)
	if !errors.Is(err, errs.ErrExtractionDegraded) {
		t.Fatalf("err = %v, want ErrExtractionDegraded", err)
	}
	if doc == nil {
		t.Fatal("degraded parse must still return the document")
	}
}
