package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/cache"
	"dualtrend/internal/config"
	"dualtrend/internal/exchange"
	"dualtrend/internal/execution"
	"dualtrend/internal/indicator"
	"dualtrend/internal/journal"
	"dualtrend/internal/market"
	"dualtrend/internal/notify"
	"dualtrend/internal/risk"
	"dualtrend/internal/store"
	"dualtrend/internal/strategy"
)

// orchestrator 串联行情、策略、风控、执行与流水记录，驱动实盘信号循环。
// 账户权益按已实现盈亏做纸面记账，起点为配置的初始资金。
type orchestrator struct {
	cfg    *config.Config
	symbol string

	market   *exchange.MarketDataService
	strat    *strategy.Strategy
	risk     *risk.Manager
	executor execution.Trader
	journal  *journal.Service
	mailer   *notify.Mailer
	cache    *cache.Cache
	logger   *zap.Logger

	equity       float64
	openTradeID  int64
	openQuantity float64
	openFraction float64
	lastBar      time.Time
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger, store *store.Store) (*orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	strat, err := strategy.New(cfg.Strategy, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化策略失败: %w", err)
	}

	riskMgr, err := risk.NewManager(cfg.Risk, store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化风险管理失败: %w", err)
	}

	journalSvc, err := journal.NewService(store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化交易流水失败: %w", err)
	}

	exClient, err := exchange.NewClient(cfg.Exchange, cfg.Exchange.Market, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化行情客户端失败: %w", err)
	}
	marketSvc := exchange.NewMarketDataService(exClient, logger)

	var trader execution.Trader
	if cfg.Execution.Simulation {
		logger.Info("执行器处于模拟模式", zap.String("symbol", cfg.Exchange.Market))
		trader = execution.NewSimulatedExecutor(logger)
	} else {
		trader = execution.NewExecutor(exClient.Raw(), cfg.Exchange.Market, logger)
	}

	var candleCache *cache.Cache
	if cfg.Cache.Enabled {
		candleCache, err = cache.New(cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化K线缓存失败: %w", err)
		}
	}

	return &orchestrator{
		cfg:      cfg,
		symbol:   cfg.Exchange.Market,
		market:   marketSvc,
		strat:    strat,
		risk:     riskMgr,
		executor: trader,
		journal:  journalSvc,
		mailer:   notify.NewMailer(cfg.Notify, logger),
		cache:    candleCache,
		logger:   logger,
		equity:   cfg.Backtest.InitialCapital,
	}, nil
}

// Journal 返回流水服务，供监控接口使用。
func (o *orchestrator) Journal() *journal.Service {
	return o.journal
}

// Tick 执行一轮信号判定。同一根慢速K线只评估一次，K线未推进时直接返回。
func (o *orchestrator) Tick(ctx context.Context) error {
	snapshot, err := o.market.GetSnapshot(ctx, exchange.SnapshotRequest{
		SlowLimit: o.cfg.Scheduler.SlowLookback,
		FastLimit: o.cfg.Scheduler.FastLookback,
	})
	if err != nil {
		o.journal.RecordError(ctx, "拉取市场数据失败", err, map[string]interface{}{"symbol": o.symbol})
		return err
	}

	if o.cache != nil {
		if cacheErr := o.cache.Save(o.symbol, market.TimeframeSlow, snapshot.SlowCandles); cacheErr != nil {
			o.logger.Warn("缓存小时线失败", zap.Error(cacheErr))
		}
		if cacheErr := o.cache.Save(o.symbol, market.TimeframeFast, snapshot.FastCandles); cacheErr != nil {
			o.logger.Warn("缓存十分钟线失败", zap.Error(cacheErr))
		}
	}

	slowRaw := market.NewSeries(snapshot.SlowCandles)
	fastRaw := market.NewSeries(snapshot.FastCandles)
	if slowRaw.Len() == 0 || !slowRaw.Sorted() || !fastRaw.Sorted() {
		err := fmt.Errorf("市场数据无效: slow=%d fast=%d", slowRaw.Len(), fastRaw.Len())
		o.journal.RecordError(ctx, "市场数据校验失败", err, nil)
		return err
	}

	idx := slowRaw.Len() - 1
	barTime := slowRaw.Timestamps[idx]
	if !o.lastBar.IsZero() && !barTime.After(o.lastBar) {
		return nil
	}

	slow, fast := strategy.Prepare(slowRaw, fastRaw, o.strat.Params())
	price := slow.Close[idx]

	if o.strat.Position() != strategy.PositionFlat {
		if reason := o.strat.CheckExit(fast, slow, barTime, price, idx); reason != strategy.ExitNone {
			if err := o.closePosition(ctx, barTime, price, reason); err != nil {
				return err
			}

			if reason == strategy.ExitTakeProfit {
				if sig, px := o.strat.ReentrySignal(slow, fast, idx); sig != strategy.SignalNone {
					if err := o.openPosition(ctx, barTime, sig, px); err != nil {
						return err
					}
				}
			}
		}
	}

	if sig, px := o.strat.CheckEntry(slow, fast, idx); sig != strategy.SignalNone {
		o.recordSignal(ctx, sig, px, fastRaw)
		if err := o.openPosition(ctx, barTime, sig, px); err != nil {
			return err
		}
	}

	o.lastBar = barTime
	return nil
}

// recordSignal 落盘信号事件，附带触发周期的指标快照。
func (o *orchestrator) recordSignal(ctx context.Context, sig strategy.Signal, price float64, fastRaw market.Series) {
	payload := map[string]interface{}{
		"signal": sig.String(),
		"price":  price,
	}
	if overview, err := indicator.ComputeOverview(market.TimeframeFast, fastRaw); err == nil {
		payload["overview"] = overview
	}
	o.journal.RecordSignal(ctx, payload)
}

func (o *orchestrator) openPosition(ctx context.Context, now time.Time, sig strategy.Signal, price float64) error {
	plannedStop := price * (1 - sig.Direction().Sign()*o.cfg.Strategy.StopLossPercent/100)
	evaluation, err := o.risk.Evaluate(ctx, risk.EvaluationInput{
		Symbol:      o.symbol,
		Signal:      sig,
		Account:     risk.AccountState{Equity: o.equity, Balance: o.equity, Timestamp: now},
		MarketPrice: price,
		StopPrice:   plannedStop,
	})
	if err != nil {
		o.journal.RecordError(ctx, "风险评估失败", err, map[string]interface{}{"symbol": o.symbol})
		return err
	}

	if evaluation.Status != risk.StatusProceed {
		o.logger.Info("风控拦截入场信号",
			zap.String("signal", sig.String()),
			zap.Strings("notes", evaluation.Notes),
		)
		if recErr := o.journal.Record(ctx, journal.Event{
			Type:    journal.EventRiskBlock,
			Payload: map[string]interface{}{"signal": sig.String(), "notes": evaluation.Notes},
		}); recErr != nil {
			o.logger.Warn("记录风控拦截失败", zap.Error(recErr))
		}
		o.mailer.RiskAlert(ctx, fmt.Sprintf("信号 %s 被风控拦截: %v", sig.String(), evaluation.Notes))
		return nil
	}

	direction := sig.Direction()
	o.strat.Enter(direction, price)

	plan := execution.ExecutionPlan{
		Symbol:      o.symbol,
		Action:      execution.ActionOpen,
		Direction:   direction,
		Quantity:    evaluation.Quantity,
		MarketPrice: price,
		TakeProfit:  o.strat.TakeProfitPrice(),
		StopLoss:    o.strat.StopLossPrice(),
		RiskResult:  evaluation,
		GeneratedAt: now,
	}

	orders, err := o.executor.BuildPlan(plan)
	if err != nil {
		o.journal.RecordError(ctx, "生成执行计划失败", err, nil)
		o.strat.AbortEntry()
		return err
	}
	if _, err := o.executor.Execute(ctx, orders); err != nil {
		o.journal.RecordError(ctx, "执行订单失败", err, nil)
		o.strat.AbortEntry()
		return err
	}

	tradeID, err := o.journal.OpenTrade(ctx, journal.TradeRecord{
		Symbol:     o.symbol,
		Direction:  direction.String(),
		EntryTime:  now,
		EntryPrice: price,
	})
	if err != nil {
		o.logger.Warn("记录建仓流水失败", zap.Error(err))
	}

	o.openTradeID = tradeID
	o.openQuantity = evaluation.Quantity
	o.openFraction = evaluation.PositionFraction
	o.mailer.TradeOpened(ctx, o.symbol, direction.String(), price, o.strat.TakeProfitPrice(), o.strat.StopLossPrice())
	return nil
}

// closePosition 先提交平仓订单，成交后才更新策略与账户状态。订单失败时
// 保持持仓不变，等待下一轮重试，避免策略空仓而实盘仓位仍然存在。
func (o *orchestrator) closePosition(ctx context.Context, now time.Time, price float64, reason strategy.ExitReason) error {
	direction := o.strat.Position()

	plan := execution.ExecutionPlan{
		Symbol:      o.symbol,
		Action:      execution.ActionClose,
		Direction:   direction,
		Quantity:    o.openQuantity,
		MarketPrice: price,
		GeneratedAt: now,
	}

	orders, err := o.executor.BuildPlan(plan)
	if err != nil {
		o.journal.RecordError(ctx, "生成平仓计划失败", err, nil)
		return err
	}
	if _, err := o.executor.Execute(ctx, orders); err != nil {
		o.journal.RecordError(ctx, "执行平仓失败", err, nil)
		return err
	}

	pnlPercent := o.strat.Exit(price, reason)
	pnlDollar := o.equity * o.openFraction * pnlPercent / 100
	o.equity += pnlDollar

	if o.openTradeID > 0 {
		if err := o.journal.CloseTrade(ctx, o.openTradeID, now, price, pnlPercent, pnlDollar, string(reason)); err != nil {
			o.logger.Warn("记录平仓流水失败", zap.Error(err))
		}
	}

	o.openTradeID = 0
	o.openQuantity = 0
	o.mailer.TradeClosed(ctx, o.symbol, direction.String(), price, pnlPercent, string(reason))
	return nil
}
