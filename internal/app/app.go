package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/backtest"
	"dualtrend/internal/cache"
	"dualtrend/internal/config"
	"dualtrend/internal/exchange"
	"dualtrend/internal/journal"
	"dualtrend/internal/market"
	"dualtrend/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 驱动实盘信号循环，直到收到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("交易系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("exchange", a.cfg.Exchange.Name),
		zap.String("market", a.cfg.Exchange.Market),
		zap.Bool("simulation", a.cfg.Execution.Simulation),
	)

	orch, err := newOrchestrator(a.cfg, a.logger, a.store)
	if err != nil {
		return err
	}

	if a.cfg.App.MonitorPort > 0 {
		if err := startMonitorServer(ctx, orch.Journal(), a.cfg.App.MonitorPort, a.logger); err != nil {
			return err
		}
	}

	loopInterval := a.cfg.Scheduler.PollInterval
	if loopInterval <= 0 {
		loopInterval = time.Minute
	}

	if err = orch.Tick(ctx); err != nil {
		a.logger.Error("首次执行失败", zap.Error(err))
	}

	ticker := time.NewTicker(loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("系统异常退出: %w", err)
			}
			a.logger.Info("系统收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			if err = orch.Tick(ctx); err != nil {
				a.logger.Error("执行调度失败", zap.Error(err))
			}
		}
	}
}

// RunBacktest 拉取历史K线执行一次完整回测，结果写入日志与交易流水。
// 缓存可用且覆盖足够时优先使用缓存数据。
func (a *App) RunBacktest(ctx context.Context) error {
	slowCandles, fastCandles, err := a.loadCandles(ctx)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(a.cfg.Backtest, a.cfg.Strategy, a.logger)
	if err != nil {
		return err
	}

	report, err := engine.Run(ctx, market.NewSeries(slowCandles), market.NewSeries(fastCandles))
	if err != nil {
		return err
	}

	stats := report.Statistics
	a.logger.Info("回测报告",
		zap.String("status", string(report.Status)),
		zap.Int("total_trades", stats.TotalTrades),
		zap.Int("winning_trades", stats.WinningTrades),
		zap.Float64("win_rate_percent", stats.WinRatePercent),
		zap.Float64("total_pnl_dollar", stats.TotalPnlDollar),
		zap.Float64("profit_factor", stats.ProfitFactor),
		zap.Float64("max_drawdown_percent", stats.MaxDrawdownPercent),
		zap.Float64("roi_percent", stats.ROIPercent),
		zap.Float64("sharpe_ratio", report.Extended.SharpeRatio),
		zap.Float64("sortino_ratio", report.Extended.SortinoRatio),
		zap.Float64("final_capital", stats.FinalCapital),
	)

	journalSvc, err := journal.NewService(a.store, a.logger)
	if err != nil {
		return err
	}
	for _, trade := range report.Trades {
		id, openErr := journalSvc.OpenTrade(ctx, journal.TradeRecord{
			Symbol:     a.cfg.Exchange.Market,
			Direction:  trade.Direction.String(),
			EntryTime:  trade.EntryTime,
			EntryPrice: trade.EntryPrice,
		})
		if openErr != nil {
			return openErr
		}
		if closeErr := journalSvc.CloseTrade(ctx, id, trade.ExitTime, trade.ExitPrice,
			trade.PnlPercent, trade.PnlDollar, string(trade.ExitReason)); closeErr != nil {
			return closeErr
		}
	}

	return nil
}

func (a *App) loadCandles(ctx context.Context) ([]market.Candle, []market.Candle, error) {
	symbol := a.cfg.Exchange.Market

	if a.cfg.Cache.Enabled {
		candleCache, err := cache.New(a.cfg.Cache, a.logger)
		if err != nil {
			return nil, nil, err
		}

		slow, loadErr := candleCache.Load(symbol, market.TimeframeSlow, time.Time{}, time.Time{})
		if loadErr != nil {
			return nil, nil, loadErr
		}
		fast, loadErr := candleCache.Load(symbol, market.TimeframeFast, time.Time{}, time.Time{})
		if loadErr != nil {
			return nil, nil, loadErr
		}

		if len(slow) > a.cfg.Strategy.EmaPeriod && len(fast) > a.cfg.Strategy.BandPeriod {
			a.logger.Info("使用缓存K线回测",
				zap.Int("slow_count", len(slow)),
				zap.Int("fast_count", len(fast)),
			)
			return slow, fast, nil
		}
	}

	client, err := exchange.NewClient(a.cfg.Exchange, symbol, a.logger)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := exchange.NewMarketDataService(client, a.logger).GetSnapshot(ctx, exchange.SnapshotRequest{
		SlowLimit: a.cfg.Scheduler.SlowLookback,
		FastLimit: a.cfg.Scheduler.FastLookback,
	})
	if err != nil {
		return nil, nil, err
	}

	if a.cfg.Cache.Enabled {
		if candleCache, cacheErr := cache.New(a.cfg.Cache, a.logger); cacheErr == nil {
			if saveErr := candleCache.Save(symbol, market.TimeframeSlow, snapshot.SlowCandles); saveErr != nil {
				a.logger.Warn("缓存小时线失败", zap.Error(saveErr))
			}
			if saveErr := candleCache.Save(symbol, market.TimeframeFast, snapshot.FastCandles); saveErr != nil {
				a.logger.Warn("缓存十分钟线失败", zap.Error(saveErr))
			}
		}
	}

	return snapshot.SlowCandles, snapshot.FastCandles, nil
}
