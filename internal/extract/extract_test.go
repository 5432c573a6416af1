package extract

import "testing"

func TestRun(t *testing.T) {
	text := "피보험자가 암(C77)으로 진단확정된 경우 5천만원을 지급한다. " +
		"다만 보장개시일부터 90일 이내에 진단된 경우는 제외한다."

	res := Run(text, DefaultConfig())

	if len(res.Amounts) != 1 || res.Amounts[0].Value != 50_000_000 {
		t.Errorf("amounts = %+v, want one 50000000 entry", res.Amounts)
	}
	if len(res.Periods) != 1 || res.Periods[0].Days != 90 {
		t.Errorf("periods = %+v, want one 90-day entry", res.Periods)
	}
	if len(res.Codes) != 1 || res.Codes[0].Code != "C77" {
		t.Errorf("codes = %+v, want one C77 entry", res.Codes)
	}
}

func TestRunOffsetsStrictlyIncreasing(t *testing.T) {
	text := "1보장 100만원 C16 30일, 2보장 200만원 C22 60일, 3보장 300만원 C34 90일"
	res := Run(text, DefaultConfig())

	for i := 1; i < len(res.Amounts); i++ {
		if res.Amounts[i].Offset <= res.Amounts[i-1].Offset {
			t.Error("amount offsets not strictly increasing")
		}
	}
	for i := 1; i < len(res.Periods); i++ {
		if res.Periods[i].Offset <= res.Periods[i-1].Offset {
			t.Error("period offsets not strictly increasing")
		}
	}
	for i := 1; i < len(res.Codes); i++ {
		if res.Codes[i].Offset <= res.Codes[i-1].Offset {
			t.Error("code offsets not strictly increasing")
		}
	}
}

func TestRunEmptyText(t *testing.T) {
	res := Run("", DefaultConfig())
	a, p, c := res.Counts()
	if a != 0 || p != 0 || c != 0 {
		t.Errorf("empty text produced extractions: %d/%d/%d", a, p, c)
	}
}

func TestRunZeroConfigUsesDefaults(t *testing.T) {
	res := Run("진단금 5천만원", Config{})
	if len(res.Amounts) != 1 {
		t.Fatalf("zero-value config should fall back to defaults, got %+v", res.Amounts)
	}
}
