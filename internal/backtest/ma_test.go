package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
)

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestMovingAverage(t *testing.T) {
	closes := decimals("10", "20", "30", "40")

	ma := MovingAverage(closes, 2)
	if len(ma) != len(closes) {
		t.Fatalf("MovingAverage length = %d, want %d", len(ma), len(closes))
	}

	// Index 0 is before the window fills.
	if !ma[0].IsZero() {
		t.Errorf("ma[0] = %s, want zero (undefined)", ma[0])
	}
	if want := decimal.RequireFromString("15"); !ma[1].Equal(want) {
		t.Errorf("ma[1] = %s, want %s", ma[1], want)
	}
	if want := decimal.RequireFromString("25"); !ma[2].Equal(want) {
		t.Errorf("ma[2] = %s, want %s", ma[2], want)
	}
	if want := decimal.RequireFromString("35"); !ma[3].Equal(want) {
		t.Errorf("ma[3] = %s, want %s", ma[3], want)
	}
}

func TestMovingAverageWindowLargerThanSeries(t *testing.T) {
	closes := decimals("10", "20")

	ma := MovingAverage(closes, 5)
	for i, v := range ma {
		if !v.IsZero() {
			t.Errorf("ma[%d] = %s, want zero for unfilled window", i, v)
		}
	}
}

func TestDefined(t *testing.T) {
	cases := []struct {
		i, window int
		want      bool
	}{
		{0, 1, true},
		{0, 2, false},
		{1, 2, true},
		{4, 5, true},
		{3, 5, false},
		{0, 0, false},
	}
	for _, tc := range cases {
		if got := Defined(tc.i, tc.window); got != tc.want {
			t.Errorf("Defined(%d, %d) = %v, want %v", tc.i, tc.window, got, tc.want)
		}
	}
}
