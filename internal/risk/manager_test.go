package risk

import (
	"context"
	"testing"
	"time"

	"dualtrend/internal/config"
	"dualtrend/internal/store"
	"dualtrend/internal/strategy"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	mgr, err := NewManager(config.RiskConfig{
		RiskPerTradePercent: 1,
		MaxPositionFraction: 0.10,
		MaxDailyLossPercent: 3,
		MaxDrawdownPercent:  15,
		DailyResetHour:      0,
	}, st, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return mgr
}

func TestEvaluateProceed(t *testing.T) {
	mgr := newTestManager(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	result, err := mgr.Evaluate(context.Background(), EvaluationInput{
		Symbol:      "BTC/USDT:USDT",
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 100000, Timestamp: now},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Status != StatusProceed {
		t.Fatalf("status = %s, want proceed; notes: %v", result.Status, result.Notes)
	}
	if result.PositionFraction != 0.10 {
		t.Errorf("fraction = %f, want 0.10", result.PositionFraction)
	}
	if result.Quantity != 100000*0.10/50000 {
		t.Errorf("quantity = %f, want 0.2", result.Quantity)
	}
}

func TestEvaluateSizesByStopDistance(t *testing.T) {
	mgr := newTestManager(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// 风险预算 1000，止损距离 20000，名义金额 2500 未触及仓位上限。
	result, err := mgr.Evaluate(context.Background(), EvaluationInput{
		Symbol:      "BTC/USDT:USDT",
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 100000, Timestamp: now},
		MarketPrice: 50000,
		StopPrice:   30000,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Status != StatusProceed {
		t.Fatalf("status = %s, want proceed; notes: %v", result.Status, result.Notes)
	}
	if result.Quantity != 0.05 {
		t.Errorf("quantity = %f, want 0.05", result.Quantity)
	}
	if result.PositionFraction != 0.025 {
		t.Errorf("fraction = %f, want 0.025", result.PositionFraction)
	}
}

func TestEvaluateCapsNotional(t *testing.T) {
	mgr := newTestManager(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// 止损距离很小，原始名义金额远超净值的10%，应被截断到上限。
	result, err := mgr.Evaluate(context.Background(), EvaluationInput{
		Symbol:      "BTC/USDT:USDT",
		Signal:      strategy.SignalSell,
		Account:     AccountState{Equity: 100000, Timestamp: now},
		MarketPrice: 50000,
		StopPrice:   50500,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Status != StatusProceed {
		t.Fatalf("status = %s, want proceed; notes: %v", result.Status, result.Notes)
	}
	if result.Quantity != 10000.0/50000 {
		t.Errorf("quantity = %f, want 0.2", result.Quantity)
	}
	if result.PositionFraction != 0.10 {
		t.Errorf("fraction = %f, want 0.10", result.PositionFraction)
	}
}

func TestUpdateLimits(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.UpdateLimits(config.RiskConfig{
		RiskPerTradePercent: 2,
		MaxPositionFraction: 1.5,
		MaxDailyLossPercent: 3,
		MaxDrawdownPercent:  15,
	}); err == nil {
		t.Fatal("UpdateLimits accepted invalid max_position_fraction")
	}
	if mgr.cfg.RiskPerTradePercent != 1 {
		t.Errorf("rejected update mutated config: %+v", mgr.cfg)
	}

	if err := mgr.UpdateLimits(config.RiskConfig{
		RiskPerTradePercent: 2,
		MaxPositionFraction: 0.25,
		MaxDailyLossPercent: 5,
		MaxDrawdownPercent:  20,
		DailyResetHour:      8,
	}); err != nil {
		t.Fatalf("UpdateLimits failed: %v", err)
	}
	if mgr.cfg.MaxPositionFraction != 0.25 || mgr.tracker.cfg.DailyResetHour != 8 {
		t.Errorf("update not applied: cfg=%+v tracker=%+v", mgr.cfg, mgr.tracker.cfg)
	}
}

func TestEvaluateDenyWithoutSignal(t *testing.T) {
	mgr := newTestManager(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	result, err := mgr.Evaluate(context.Background(), EvaluationInput{
		Signal:      strategy.SignalNone,
		Account:     AccountState{Equity: 100000, Timestamp: now},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Status != StatusDeny {
		t.Errorf("status = %s, want deny", result.Status)
	}
}

func TestDailyLossHalts(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 100000, Timestamp: now},
		MarketPrice: 50000,
	}); err != nil {
		t.Fatalf("first Evaluate failed: %v", err)
	}

	// 同一交易日净值下跌4%，超过3%上限。
	result, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 96000, Timestamp: now.Add(2 * time.Hour)},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}
	if result.Status != StatusDeny || !result.DailyStatus.Halted {
		t.Errorf("result = %+v, want halted deny", result)
	}

	// 次日恢复交易。
	nextDay, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 96000, Timestamp: now.Add(24 * time.Hour)},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("next day Evaluate failed: %v", err)
	}
	if nextDay.Status != StatusProceed {
		t.Errorf("next day status = %s, want proceed; notes: %v", nextDay.Status, nextDay.Notes)
	}
}

func TestDrawdownLimit(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 100000, Timestamp: base},
		MarketPrice: 50000,
	}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// 跨交易日回撤16%，日度限制不触发但回撤限制应拦截。
	result, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 84000, Timestamp: base.Add(48 * time.Hour)},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Status != StatusDeny {
		t.Errorf("status = %s, want deny on drawdown; notes: %v", result.Status, result.Notes)
	}

	mgr.ResetPeak()
	recovered, err := mgr.Evaluate(ctx, EvaluationInput{
		Signal:      strategy.SignalBuy,
		Account:     AccountState{Equity: 84000, Timestamp: base.Add(72 * time.Hour)},
		MarketPrice: 50000,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if recovered.Status != StatusProceed {
		t.Errorf("status after ResetPeak = %s, want proceed; notes: %v", recovered.Status, recovered.Notes)
	}
}
