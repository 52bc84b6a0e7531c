package market

import (
	"testing"
	"time"
)

func makeCandles(start time.Time, step time.Duration, closes []float64) []Candle {
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		candles[i] = Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return candles
}

func TestAlignAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := NewSeries(makeCandles(start, 10*time.Minute, []float64{1, 2, 3, 4, 5, 6}))

	cases := []struct {
		offset time.Duration
		want   int
	}{
		{-time.Minute, -1},
		{0, 0},
		{5 * time.Minute, 0},
		{10 * time.Minute, 1},
		{25 * time.Minute, 2},
		{50 * time.Minute, 5},
		{2 * time.Hour, 5},
	}

	for _, tc := range cases {
		got := series.AlignAt(start.Add(tc.offset))
		if got != tc.want {
			t.Errorf("AlignAt(start+%v) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}

func TestAlignAtEmpty(t *testing.T) {
	var series Series
	if got := series.AlignAt(time.Now()); got != -1 {
		t.Fatalf("AlignAt on empty series = %d, want -1", got)
	}
}

func TestSorted(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := NewSeries(makeCandles(start, time.Hour, []float64{1, 2, 3}))
	if !series.Sorted() {
		t.Fatalf("expected strictly increasing series to be sorted")
	}

	series.Timestamps[2] = series.Timestamps[1]
	if series.Sorted() {
		t.Fatalf("expected duplicate timestamp to fail Sorted")
	}
}

func TestCandlesRoundTrip(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := makeCandles(start, time.Hour, []float64{10, 11, 12})
	series := NewSeries(src)
	out := series.Candles()

	if len(out) != len(src) {
		t.Fatalf("round trip length mismatch: got %d want %d", len(out), len(src))
	}
	for i := range src {
		if out[i] != src[i] {
			t.Errorf("candle %d mismatch: got %+v want %+v", i, out[i], src[i])
		}
	}
}
