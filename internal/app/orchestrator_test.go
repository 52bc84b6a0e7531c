package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"dualtrend/internal/config"
	"dualtrend/internal/execution"
	"dualtrend/internal/journal"
	"dualtrend/internal/notify"
	"dualtrend/internal/risk"
	"dualtrend/internal/store"
	"dualtrend/internal/strategy"
)

// failingTrader 构造计划成功但提交失败的执行器。
type failingTrader struct {
	err error
}

func (f *failingTrader) BuildPlan(plan execution.ExecutionPlan) ([]execution.OrderRequest, error) {
	return []execution.OrderRequest{{Type: "market", Amount: plan.Quantity}}, nil
}

func (f *failingTrader) Execute(ctx context.Context, orders []execution.OrderRequest) (execution.Result, error) {
	return execution.Result{}, f.err
}

func newTestOrchestrator(t *testing.T, trader execution.Trader) *orchestrator {
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

	journalSvc, err := journal.NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	strat, err := strategy.New(strategy.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("New strategy failed: %v", err)
	}

	cfg := &config.Config{
		Strategy: strategy.DefaultParams(),
		Risk: config.RiskConfig{
			RiskPerTradePercent: 1,
			MaxPositionFraction: 0.10,
			MaxDailyLossPercent: 3,
			MaxDrawdownPercent:  15,
		},
	}
	riskMgr, err := risk.NewManager(cfg.Risk, st, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	return &orchestrator{
		cfg:      cfg,
		symbol:   "BTC/USDT:USDT",
		strat:    strat,
		risk:     riskMgr,
		executor: trader,
		journal:  journalSvc,
		mailer:   notify.NewMailer(config.NotifyConfig{}, nil),
		equity:   100000,
	}
}

// 平仓订单提交失败时，策略必须保持持仓且账户权益不变，等待下一轮重试；
// 先改状态后下单会造成策略空仓而实盘仓位仍然存在。
func TestClosePositionKeepsStateOnExecuteFailure(t *testing.T) {
	o := newTestOrchestrator(t, &failingTrader{err: errors.New("exchange unavailable")})
	o.strat.Enter(strategy.PositionLong, 100)
	o.openQuantity = 0.5
	o.openFraction = 0.10

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := o.closePosition(context.Background(), now, 102, strategy.ExitTakeProfit); err == nil {
		t.Fatal("expected error from failing executor")
	}

	if o.strat.Position() != strategy.PositionLong {
		t.Errorf("position = %v after failed close, want LONG", o.strat.Position())
	}
	if o.equity != 100000 {
		t.Errorf("equity = %f after failed close, want unchanged 100000", o.equity)
	}
}

// 建仓订单提交失败时回滚到空仓，且不得把离场原因改写为手动平仓。
func TestOpenPositionRollsBackOnExecuteFailure(t *testing.T) {
	o := newTestOrchestrator(t, &failingTrader{err: errors.New("exchange unavailable")})
	o.strat.Enter(strategy.PositionLong, 100)
	if pnl := o.strat.Exit(102, strategy.ExitTakeProfit); pnl <= 0 {
		t.Fatalf("setup exit pnl = %f, want > 0", pnl)
	}

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := o.openPosition(context.Background(), now, strategy.SignalBuy, 102); err == nil {
		t.Fatal("expected error from failing executor")
	}

	if o.strat.Position() != strategy.PositionFlat {
		t.Errorf("position = %v after aborted entry, want flat", o.strat.Position())
	}
	if o.strat.LastExitReason() != strategy.ExitTakeProfit {
		t.Errorf("last exit reason = %v, want %v preserved", o.strat.LastExitReason(), strategy.ExitTakeProfit)
	}
}
