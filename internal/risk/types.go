package risk

import (
	"time"

	"dualtrend/internal/strategy"
)

// StatusType 描述风险评估结果状态。
type StatusType string

const (
	StatusProceed StatusType = "proceed"
	StatusDeny    StatusType = "deny"
)

// AccountState 表示账户资金状况。
type AccountState struct {
	Equity    float64   // 当前账户净值
	Balance   float64   // 账户余额
	Timestamp time.Time // 评估时间
}

// EvaluationInput 为风险评估输入。
type EvaluationInput struct {
	Symbol      string
	Signal      strategy.Signal
	Account     AccountState
	MarketPrice float64
	StopPrice   float64 // 计划止损价，为0时退化为固定比例仓位
}

// DailyStatus 表示当日风控状态。
type DailyStatus struct {
	TradingDate   string
	StartEquity   float64
	CurrentEquity float64
	LossPercent   float64
	Halted        bool
}

// EvaluationResult 为风险评估输出。
type EvaluationResult struct {
	Symbol           string
	Status           StatusType
	PositionFraction float64 // 建议仓位占净值比例
	Quantity         float64 // 建议下单数量（标的计）
	RiskAmount       float64 // 本笔投入的名义金额
	Notes            []string
	DailyStatus      DailyStatus
}
