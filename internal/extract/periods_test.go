package extract

import "testing"

func TestPeriods(t *testing.T) {
	tests := []struct {
		name string
		text string
		days int
	}{
		{"days", "보장개시일부터 90일이 지난 후", 90},
		{"weeks", "접수 후 2주 이내", 14},
		{"months", "가입 후 3개월간 면책", 90},
		{"years", "계약일부터 1년 이내", 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods := Periods(tt.text, DefaultContextWindow)
			if len(periods) != 1 {
				t.Fatalf("got %d periods, want 1: %+v", len(periods), periods)
			}
			if periods[0].Days != tt.days {
				t.Errorf("days = %d, want %d", periods[0].Days, tt.days)
			}
		})
	}
}

func TestPeriodsDeterministic(t *testing.T) {
	text := "면책기간은 3개월이다."
	first := Periods(text, DefaultContextWindow)
	second := Periods(text, DefaultContextWindow)
	if len(first) != 1 || len(second) != 1 || first[0].Days != second[0].Days {
		t.Fatalf("normalization not deterministic: %+v vs %+v", first, second)
	}
}

func TestPeriodsMonthNotSplit(t *testing.T) {
	// "3개월" must normalize as one month unit, not leave a stray "월".
	periods := Periods("3개월", DefaultContextWindow)
	if len(periods) != 1 || periods[0].Days != 90 {
		t.Fatalf("got %+v, want one period of 90 days", periods)
	}
	if periods[0].Raw != "3개월" {
		t.Errorf("raw = %q, want 3개월", periods[0].Raw)
	}
}
