package execution

import (
	"time"

	"dualtrend/internal/risk"
	"dualtrend/internal/strategy"
)

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Action 表示执行计划的操作类型。
type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// ExecutionPlan 描述一次交易执行的目标。建仓计划必须携带风控放行结果，
// 平仓计划不经过风控。
type ExecutionPlan struct {
	Symbol      string
	Action      Action
	Direction   strategy.Position
	Quantity    float64
	MarketPrice float64
	TakeProfit  float64
	StopLoss    float64
	RiskResult  risk.EvaluationResult
	GeneratedAt time.Time
}

// OrderRequest 抽象具体委托。
type OrderRequest struct {
	Type       string // market | limit
	Side       OrderSide
	Amount     float64
	Price      float64
	ReduceOnly bool
	CloseAll   bool
	Params     map[string]interface{}
	IsTrigger  bool
}

// Result 为执行结果摘要。
type Result struct {
	Orders        []OrderRequest
	Executed      bool
	ExecutionTime time.Time
	Notes         []string
}
