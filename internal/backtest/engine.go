package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/analytics"
	"dualtrend/internal/market"
	"dualtrend/internal/strategy"
)

// 权益曲线按小时K线采样，年化换算取每年小时数。
const periodsPerYear = 24 * 365

// Engine 驱动双周期策略在历史K线上的逐根回放。输入与参数相同时，
// 多次运行产出逐位一致的结果。
type Engine struct {
	cfg    Config
	strat  *strategy.Strategy
	logger *zap.Logger

	status  Status
	capital float64
	trades  []Trade
	equity  []EquityPoint

	openEntryTime time.Time
}

// NewEngine 构建回测引擎。
func NewEngine(cfg Config, params strategy.Params, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	strat, err := strategy.New(params, logger)
	if err != nil {
		return nil, fmt.Errorf("backtest: 创建策略失败: %w", err)
	}

	return &Engine{
		cfg:    cfg.normalize(),
		strat:  strat,
		logger: logger,
		status: StatusIdle,
	}, nil
}

// Status 返回引擎当前状态。
func (e *Engine) Status() Status {
	return e.status
}

// Run 在给定的慢速与快速序列上执行完整回测。慢速序列逐根推进，快速
// 序列按时间戳对齐读取。取消检查位于每根K线处理之前，单根K线的全部
// 效果要么完整发生要么完全不发生。
func (e *Engine) Run(ctx context.Context, slowRaw, fastRaw market.Series) (*Report, error) {
	if !slowRaw.Sorted() || !fastRaw.Sorted() {
		e.status = StatusFailed
		return nil, fmt.Errorf("backtest: 输入序列时间戳未严格递增")
	}

	e.status = StatusRunning
	e.capital = e.cfg.InitialCapital
	e.trades = nil
	e.equity = nil
	e.strat.Reset()

	slow, fast := strategy.Prepare(slowRaw, fastRaw, e.strat.Params())

	cancelled := false
	for i := 0; i < slow.Len(); i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		e.step(slow, fast, i)
	}

	// 回放结束仍持仓时按最后收盘价强制平仓。
	if !cancelled && e.strat.Position() != strategy.PositionFlat && slow.Len() > 0 {
		last := slow.Len() - 1
		e.closeTrade(slow.Timestamps[last], slow.Close[last], strategy.ExitEndOfData)
	}

	if cancelled {
		e.status = StatusCancelled
	} else {
		e.status = StatusCompleted
	}

	report := e.buildReport()
	e.logger.Info("回测结束",
		zap.String("status", string(e.status)),
		zap.Int("bars", slow.Len()),
		zap.Int("trades", report.Statistics.TotalTrades),
		zap.Float64("final_capital", report.Statistics.FinalCapital),
	)
	return report, nil
}

// step 处理单根慢速K线：先判定离场，止盈后尝试同K线再入场，随后评估
// 入场信号，最后记录权益采样点。
func (e *Engine) step(slow strategy.SlowSeries, fast strategy.FastSeries, i int) {
	now := slow.Timestamps[i]
	price := slow.Close[i]

	if e.strat.Position() != strategy.PositionFlat {
		if reason := e.strat.CheckExit(fast, slow, now, price, i); reason != strategy.ExitNone {
			e.closeTrade(now, price, reason)

			if reason == strategy.ExitTakeProfit {
				if sig, px := e.strat.ReentrySignal(slow, fast, i); sig != strategy.SignalNone {
					e.openTrade(now, sig.Direction(), px)
				}
			}
		}
	}

	// 翻转与穿越跟踪依赖逐根调用，持仓期间也不能跳过。
	if sig, px := e.strat.CheckEntry(slow, fast, i); sig != strategy.SignalNone {
		e.openTrade(now, sig.Direction(), px)
	}

	e.equity = append(e.equity, EquityPoint{Time: now, Value: e.capital, Price: price})
}

func (e *Engine) openTrade(now time.Time, direction strategy.Position, price float64) {
	if direction == strategy.PositionFlat || price <= 0 {
		e.logger.Warn("忽略无效入场",
			zap.String("direction", direction.String()),
			zap.Float64("price", price),
		)
		return
	}
	e.strat.Enter(direction, price)
	e.openEntryTime = now
}

// closeTrade 平仓并按仓位占比把百分比收益折算为美元盈亏。
// 方向与入场价必须在策略平仓前取出，平仓会将其清零。
func (e *Engine) closeTrade(now time.Time, price float64, reason strategy.ExitReason) {
	direction := e.strat.Position()
	entryPrice := e.strat.EntryPrice()

	pnlPercent := e.strat.Exit(price, reason)
	pnlDollar := e.capital * e.cfg.PositionFraction * pnlPercent / 100
	e.capital += pnlDollar

	e.trades = append(e.trades, Trade{
		EntryTime:  e.openEntryTime,
		ExitTime:   now,
		Direction:  direction,
		EntryPrice: entryPrice,
		ExitPrice:  price,
		PnlPercent: pnlPercent,
		PnlDollar:  pnlDollar,
		ExitReason: reason,
	})
}

func (e *Engine) buildReport() *Report {
	values := make([]float64, len(e.equity))
	for i, p := range e.equity {
		values[i] = p.Value
	}

	stats := calculateStatistics(e.cfg, e.trades, e.capital)
	extended := analytics.Compute(values, periodsPerYear, e.cfg.RiskFreeRate)
	stats.MaxDrawdownPercent = extended.MaxDrawdownPercent

	return &Report{
		Status:      e.status,
		Statistics:  stats,
		Extended:    extended,
		Trades:      append([]Trade(nil), e.trades...),
		EquityCurve: append([]EquityPoint(nil), e.equity...),
	}
}
