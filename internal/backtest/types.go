package backtest

import (
	"time"

	"dualtrend/internal/analytics"
	"dualtrend/internal/strategy"
)

// Status 表示回测引擎的生命周期状态。
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Trade 记录一笔已平仓交易。
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Direction  strategy.Position
	EntryPrice float64
	ExitPrice  float64
	PnlPercent float64
	PnlDollar  float64
	ExitReason strategy.ExitReason
}

// EquityPoint 为权益曲线上的一个采样点，按慢速K线逐根采样，
// 同时记录该根K线的收盘价作为参照。
type EquityPoint struct {
	Time  time.Time
	Value float64
	Price float64
}

// Statistics 汇总回测绩效统计。空交易列表时除资金字段外全部为零值，
// 结构始终完整填充。
type Statistics struct {
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRatePercent     float64
	TotalPnlDollar     float64
	AveragePnlPercent  float64
	AvgWinPercent      float64
	AvgLossPercent     float64
	ProfitFactor       float64
	MaxDrawdownPercent float64
	InitialCapital     float64
	FinalCapital       float64
	ROIPercent         float64
}

// Report 为一次回测的完整结果。
type Report struct {
	Status      Status
	Statistics  Statistics
	Extended    analytics.Extended
	Trades      []Trade
	EquityCurve []EquityPoint
}
