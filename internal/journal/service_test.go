package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"dualtrend/internal/config"
	"dualtrend/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	// 内存库的多个连接各自独立，必须限制为单连接。
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestTradeLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entryTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := svc.OpenTrade(ctx, TradeRecord{
		Symbol:     "BTC/USDT:USDT",
		Direction:  "LONG",
		EntryTime:  entryTime,
		EntryPrice: 50000,
	})
	if err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}

	trades, err := svc.RecentTrades(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(trades) != 1 || trades[0].Status != TradeOpen {
		t.Fatalf("after open: trades = %+v, want one OPEN trade", trades)
	}

	exitTime := entryTime.Add(2 * time.Hour)
	if err := svc.CloseTrade(ctx, id, exitTime, 50600, 1.2, 600, "TAKE_PROFIT"); err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}

	trades, err = svc.RecentTrades(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTrades after close failed: %v", err)
	}
	got := trades[0]
	if got.Status != TradeClosed || got.ExitPrice != 50600 || got.ExitReason != "TAKE_PROFIT" {
		t.Errorf("closed trade = %+v, want CLOSED at 50600 via TAKE_PROFIT", got)
	}
	if !got.EntryTime.Equal(entryTime) || !got.ExitTime.Equal(exitTime) {
		t.Errorf("trade times = (%v, %v), want (%v, %v)", got.EntryTime, got.ExitTime, entryTime, exitTime)
	}

	// 重复平仓必须报错。
	if err := svc.CloseTrade(ctx, id, exitTime, 50600, 1.2, 600, "TAKE_PROFIT"); err == nil {
		t.Fatal("expected error when closing an already closed trade")
	}
}

func TestSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	closed := []struct {
		pnlPercent float64
		pnlDollar  float64
	}{
		{1.2, 120},
		{-0.4, -40},
		{2.0, 200},
	}
	for _, c := range closed {
		id, err := svc.OpenTrade(ctx, TradeRecord{Symbol: "BTC/USDT:USDT", Direction: "LONG", EntryTime: now, EntryPrice: 100})
		if err != nil {
			t.Fatalf("OpenTrade failed: %v", err)
		}
		if err := svc.CloseTrade(ctx, id, now.Add(time.Hour), 101, c.pnlPercent, c.pnlDollar, "TAKE_PROFIT"); err != nil {
			t.Fatalf("CloseTrade failed: %v", err)
		}
	}

	// 未平仓交易不计入汇总。
	if _, err := svc.OpenTrade(ctx, TradeRecord{Symbol: "BTC/USDT:USDT", Direction: "SHORT", EntryTime: now, EntryPrice: 100}); err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalTrades != 3 || summary.WinningTrades != 2 {
		t.Errorf("summary counts = (%d, %d), want (3, 2)", summary.TotalTrades, summary.WinningTrades)
	}
	if summary.TotalPnlDollar != 280 {
		t.Errorf("total pnl = %f, want 280", summary.TotalPnlDollar)
	}
	if summary.ProfitFactor != 8 {
		t.Errorf("profit factor = %f, want 8", summary.ProfitFactor)
	}
	if summary.LargestWin != 200 || summary.LargestLoss != -40 {
		t.Errorf("largest win/loss = (%f, %f), want (200, -40)", summary.LargestWin, summary.LargestLoss)
	}
}

func TestSummaryAllWinnersEncodable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, pnl := range []float64{120, 200} {
		id, err := svc.OpenTrade(ctx, TradeRecord{Symbol: "BTC/USDT:USDT", Direction: "LONG", EntryTime: now, EntryPrice: 100})
		if err != nil {
			t.Fatalf("OpenTrade failed: %v", err)
		}
		if err := svc.CloseTrade(ctx, id, now.Add(time.Hour), 101, 1.2, pnl, "TAKE_PROFIT"); err != nil {
			t.Fatalf("CloseTrade failed: %v", err)
		}
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.ProfitFactor != 0 {
		t.Errorf("profit factor without losses = %f, want 0", summary.ProfitFactor)
	}
	if summary.WinningTrades != 2 || summary.TotalPnlDollar != 320 {
		t.Errorf("summary = %+v, want 2 winners totalling 320", summary)
	}

	// 汇总结果必须能通过JSON序列化，/summary接口直接编码它。
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(summary); err != nil {
		t.Fatalf("encode summary: %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := svc.OpenTrade(ctx, TradeRecord{Symbol: "BTC/USDT:USDT", Direction: "LONG", EntryTime: now, EntryPrice: 50000})
	if err != nil {
		t.Fatalf("OpenTrade failed: %v", err)
	}
	if err := svc.CloseTrade(ctx, id, now.Add(time.Hour), 50600, 1.2, 600, "TAKE_PROFIT"); err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 record", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,symbol,direction") {
		t.Errorf("csv header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "TAKE_PROFIT") {
		t.Errorf("csv record = %q, want TAKE_PROFIT exit", lines[1])
	}
}

func TestActivityLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordSignal(ctx, map[string]interface{}{"signal": "BUY", "price": 50000.0})
	svc.RecordError(ctx, "拉取K线失败", context.DeadlineExceeded, nil)

	events, err := svc.ListEvents(ctx, EventSignal, 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventSignal {
		t.Fatalf("signal events = %+v, want one signal event", events)
	}

	all, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents all failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("total events = %d, want 2", len(all))
	}
}
