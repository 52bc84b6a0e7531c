package cache

import (
	"testing"
	"time"

	"dualtrend/internal/config"
	"dualtrend/internal/market"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{Enabled: true, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func makeCandles(base time.Time, step time.Duration, closes ...float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * step),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := makeCandles(base, time.Hour, 100, 101, 102)

	if err := c.Save("BTC/USDT:USDT", "1h", candles); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := c.Load("BTC/USDT:USDT", "1h", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d candles, want 3", len(got))
	}
	for i := range candles {
		if !got[i].Timestamp.Equal(candles[i].Timestamp) || got[i].Close != candles[i].Close {
			t.Errorf("candle %d = %+v, want %+v", i, got[i], candles[i])
		}
	}
}

func TestSaveMergesAndDeduplicates(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := c.Save("BTC/USDT:USDT", "1h", makeCandles(base, time.Hour, 100, 101, 102)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	// 与已有范围部分重叠，重叠的时间戳以新数据为准。
	overlap := makeCandles(base.Add(2*time.Hour), time.Hour, 999, 103, 104)
	if err := c.Save("BTC/USDT:USDT", "1h", overlap); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := c.Load("BTC/USDT:USDT", "1h", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("loaded %d candles, want 5", len(got))
	}
	if got[2].Close != 999 {
		t.Errorf("overlapping candle close = %f, want 999", got[2].Close)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("candles not sorted at %d", i)
		}
	}
}

func TestLoadRangeFilter(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := c.Save("BTC/USDT:USDT", "1h", makeCandles(base, time.Hour, 100, 101, 102, 103, 104)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := c.Load("BTC/USDT:USDT", "1h", base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d candles in range, want 3", len(got))
	}
	if got[0].Close != 101 || got[2].Close != 103 {
		t.Errorf("range bounds = (%f, %f), want (101, 103)", got[0].Close, got[2].Close)
	}
}

func TestStatAndClear(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	info, err := c.Stat("BTC/USDT:USDT", "10m")
	if err != nil {
		t.Fatalf("Stat on missing cache failed: %v", err)
	}
	if info.Count != 0 {
		t.Errorf("missing cache count = %d, want 0", info.Count)
	}

	if err := c.Save("BTC/USDT:USDT", "10m", makeCandles(base, 10*time.Minute, 100, 101)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err = c.Stat("BTC/USDT:USDT", "10m")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Count != 2 || !info.First.Equal(base) || !info.Last.Equal(base.Add(10*time.Minute)) {
		t.Errorf("info = %+v, want 2 candles covering 10m", info)
	}

	if err := c.Clear("BTC/USDT:USDT", "10m"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err := c.Load("BTC/USDT:USDT", "10m", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load after Clear failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candles after Clear = %d, want 0", len(got))
	}

	// 重复清除不报错。
	if err := c.Clear("BTC/USDT:USDT", "10m"); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}
