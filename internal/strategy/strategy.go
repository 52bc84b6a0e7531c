package strategy

import (
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/indicator"
)

// Strategy 为双周期趋势跟随的信号状态机：小时线EMA过滤趋势方向，
// 十分钟线趋势轨道触发入场与离场。单实例、单线程，生命周期覆盖一次
// 完整回放或实盘运行；并行回测必须各自持有独立实例。
//
// 同一轨道方向内每侧至多开仓一次（止盈后的再入场除外），标记仅在轨道
// 翻转或慢速K线上穿/下穿EMA时清除，离场本身不清除。
type Strategy struct {
	params Params
	logger *zap.Logger

	position   Position
	entryPrice float64
	tpPrice    float64
	slPrice    float64

	tradedBull bool
	tradedBear bool

	prevBandDir int
	prevSlowBar time.Time

	lastExitReason ExitReason
	lastDirection  Position
}

// New 创建策略实例并校验参数。
func New(params Params, logger *zap.Logger) (*Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Strategy{
		params: params,
		logger: logger,
	}
	s.resetTracking()
	return s, nil
}

// Params 返回当前参数。
func (s *Strategy) Params() Params {
	return s.params
}

// Position 返回当前持仓方向。
func (s *Strategy) Position() Position {
	return s.position
}

// EntryPrice 返回当前入场价，空仓时为0。
func (s *Strategy) EntryPrice() float64 {
	return s.entryPrice
}

// TakeProfitPrice 返回当前止盈价，空仓时为0。
func (s *Strategy) TakeProfitPrice() float64 {
	return s.tpPrice
}

// StopLossPrice 返回当前止损价，空仓时为0。
func (s *Strategy) StopLossPrice() float64 {
	return s.slPrice
}

// LastExitReason 返回最近一次离场原因。
func (s *Strategy) LastExitReason() ExitReason {
	return s.lastExitReason
}

// CheckEntry 依据当前慢速K线判定入场信号，返回信号及建议入场价。
// K线身份以时间戳区分：滑动窗口下同一根K线可能落在相同下标，同一根
// K线重复调用不会重复触发同向信号。
func (s *Strategy) CheckEntry(slow SlowSeries, fast FastSeries, slowIdx int) (Signal, float64) {
	if slowIdx < 0 || slowIdx >= slow.Len() || len(slow.EMA) != slow.Len() {
		return SignalNone, 0
	}

	close := slow.Close[slowIdx]
	barTime := slow.Timestamps[slowIdx]
	trendBull := slow.aboveEma(slowIdx)
	trendBear := slow.belowEma(slowIdx)

	// 穿越仅在首次评估该根K线时成立：要么此前从未见过慢速K线，要么前一根
	// 与EMA的相对关系相反。
	newBar := s.prevSlowBar.IsZero() || barTime.After(s.prevSlowBar)
	crossBull := false
	crossBear := false
	if newBar {
		if s.prevSlowBar.IsZero() && slowIdx == 0 {
			crossBull = trendBull
			crossBear = trendBear
		} else if slowIdx > 0 {
			crossBull = trendBull && !slow.aboveEma(slowIdx-1)
			crossBear = trendBear && !slow.belowEma(slowIdx-1)
		}
	}

	// 两个序列独立采样且不共享下标，按时间戳二分对齐。
	bandBull := false
	bandBear := false
	flipBull := false
	flipBear := false
	fi := fast.AlignAt(barTime)
	if fi >= 0 && fast.Band.Valid(fi) {
		dir := fast.Band.Direction[fi]
		bandBull = fast.Band.Bullish[fi]
		bandBear = !fast.Band.Bullish[fi]
		if dir != s.prevBandDir {
			flipBull = dir == indicator.DirectionUp
			flipBear = dir == indicator.DirectionDown
		}
		s.prevBandDir = dir
	}
	if newBar {
		s.prevSlowBar = barTime
	}

	if flipBull || crossBull {
		s.tradedBull = false
	}
	if flipBear || crossBear {
		s.tradedBear = false
	}

	if s.position == PositionFlat && bandBull && trendBull && !s.tradedBull && (flipBull || crossBull) {
		s.tradedBull = true
		s.logger.Info("入场信号",
			zap.String("signal", SignalBuy.String()),
			zap.Int("slow_idx", slowIdx),
			zap.Float64("price", close),
			zap.Bool("band_flip", flipBull),
			zap.Bool("trend_cross", crossBull),
		)
		return SignalBuy, close
	}

	if s.position == PositionFlat && bandBear && trendBear && !s.tradedBear && (flipBear || crossBear) {
		s.tradedBear = true
		s.logger.Info("入场信号",
			zap.String("signal", SignalSell.String()),
			zap.Int("slow_idx", slowIdx),
			zap.Float64("price", close),
			zap.Bool("band_flip", flipBear),
			zap.Bool("trend_cross", crossBear),
		)
		return SignalSell, close
	}

	return SignalNone, 0
}

// CheckExit 判定当前持仓是否应离场。止盈与止损先于轨道翻转判定，
// 同一根K线多条件同时触发时以先判定者作为离场原因。
func (s *Strategy) CheckExit(fast FastSeries, slow SlowSeries, now time.Time, price float64, slowIdx int) ExitReason {
	if s.position == PositionFlat {
		return ExitNone
	}

	sign := s.position.Sign()
	if sign*(price-s.tpPrice) >= 0 {
		return ExitTakeProfit
	}
	if sign*(s.slPrice-price) >= 0 {
		return ExitStopLoss
	}

	fi := fast.AlignAt(now)
	if fi >= 0 && fast.Band.Valid(fi) {
		bullish := fast.Band.Bullish[fi]
		if (s.position == PositionLong && !bullish) || (s.position == PositionShort && bullish) {
			return ExitBandFlip
		}
	}

	return ExitNone
}

// CanReenter 判断止盈离场后能否立即再入场：仅当最近一次离场原因为止盈，
// 且当前K线仍满足与被平仓交易同向的趋势与轨道对齐条件。
func (s *Strategy) CanReenter(slow SlowSeries, fast FastSeries, slowIdx int) bool {
	if s.lastExitReason != ExitTakeProfit || s.position != PositionFlat {
		return false
	}
	if slowIdx < 0 || slowIdx >= slow.Len() || len(slow.EMA) != slow.Len() {
		return false
	}

	fi := fast.AlignAt(slow.Timestamps[slowIdx])
	if fi < 0 || !fast.Band.Valid(fi) {
		return false
	}

	switch s.lastDirection {
	case PositionLong:
		return slow.aboveEma(slowIdx) && fast.Band.Bullish[fi]
	case PositionShort:
		return slow.belowEma(slowIdx) && !fast.Band.Bullish[fi]
	default:
		return false
	}
}

// ReentrySignal 为止盈后的连续交易路径生成信号。该路径绕过"每趋势只做一
// 次"标记：同一轨道方向内止盈再入场是策略明确要求的行为。
func (s *Strategy) ReentrySignal(slow SlowSeries, fast FastSeries, slowIdx int) (Signal, float64) {
	if !s.CanReenter(slow, fast, slowIdx) {
		return SignalNone, 0
	}

	price := slow.Close[slowIdx]
	switch s.lastDirection {
	case PositionLong:
		return SignalBuy, price
	case PositionShort:
		return SignalSell, price
	default:
		return SignalNone, 0
	}
}

// Enter 建仓并按方向符号设置止盈止损价。
func (s *Strategy) Enter(direction Position, price float64) {
	if direction == PositionFlat || price <= 0 {
		return
	}

	sign := direction.Sign()
	s.position = direction
	s.entryPrice = price
	s.tpPrice = price * (1 + sign*s.params.TakeProfitPercent/100)
	s.slPrice = price * (1 - sign*s.params.StopLossPercent/100)

	s.logger.Info("建仓",
		zap.String("direction", direction.String()),
		zap.Float64("entry", price),
		zap.Float64("take_profit", s.tpPrice),
		zap.Float64("stop_loss", s.slPrice),
	)
}

// AbortEntry 撤销未成交的建仓：订单提交失败时恢复空仓，不记录离场原因，
// 并退回本方向的"已交易"标记。止盈后的再入场资格不受影响。
func (s *Strategy) AbortEntry() {
	switch s.position {
	case PositionLong:
		s.tradedBull = false
	case PositionShort:
		s.tradedBear = false
	default:
		return
	}

	s.position = PositionFlat
	s.entryPrice = 0
	s.tpPrice = 0
	s.slPrice = 0
}

// Exit 平仓并返回百分比收益，同时恢复空仓不变量。
// "已交易"标记不在此清除：止盈再入场之外，同一趋势不允许反复进场。
func (s *Strategy) Exit(price float64, reason ExitReason) float64 {
	if s.position == PositionFlat {
		return 0
	}

	pnl := s.position.Sign() * (price - s.entryPrice) / s.entryPrice * 100

	s.logger.Info("平仓",
		zap.String("direction", s.position.String()),
		zap.Float64("exit", price),
		zap.Float64("pnl_percent", pnl),
		zap.String("reason", string(reason)),
	)

	s.lastDirection = s.position
	s.lastExitReason = reason
	s.position = PositionFlat
	s.entryPrice = 0
	s.tpPrice = 0
	s.slPrice = 0

	return pnl
}

// UpdateParams 更新参数。校验失败时保留原参数并返回错误；成功后清除全部
// 翻转检测与"已交易"状态，避免陈旧标记压制参数变更后首根K线的信号。
func (s *Strategy) UpdateParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.params = params
	s.resetTracking()
	return nil
}

// Reset 清空持仓与全部跟踪状态，恢复到初始空仓。
func (s *Strategy) Reset() {
	s.position = PositionFlat
	s.entryPrice = 0
	s.tpPrice = 0
	s.slPrice = 0
	s.resetTracking()
}

func (s *Strategy) resetTracking() {
	s.tradedBull = false
	s.tradedBear = false
	s.prevBandDir = 0
	s.prevSlowBar = time.Time{}
	s.lastExitReason = ExitNone
	s.lastDirection = PositionFlat
}
