package core

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"2024-03", Period{2024, time.March}, true},
		{" 2024-12 ", Period{2024, time.December}, true},
		{"2024-13", Period{}, false},
		{"2024-00", Period{}, false},
		{"2024-3", Period{}, false},
		{"202403", Period{}, false},
		{"", Period{}, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestPeriodArithmetic(t *testing.T) {
	p := Period{2024, time.December}
	if got := p.Next().String(); got != "2025-01" {
		t.Errorf("Next() = %s", got)
	}
	if got := (Period{2024, time.January}).Prev().String(); got != "2023-12" {
		t.Errorf("Prev() = %s", got)
	}
	if got := p.AddMonths(-14).String(); got != "2023-10" {
		t.Errorf("AddMonths(-14) = %s", got)
	}
	if got := (Period{2024, time.February}).Last().String(); got != "2024-02-29" {
		t.Errorf("Last() = %s", got)
	}
	if p.Compare(p.Next()) != -1 || p.Next().Compare(p) != 1 || p.Compare(p) != 0 {
		t.Error("Compare ordering is wrong")
	}
}
