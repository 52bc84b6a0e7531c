package journal

import "time"

// TradeStatus 表示交易记录状态。
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// TradeRecord 为交易流水中的一条记录。
type TradeRecord struct {
	ID         int64       `json:"id"`
	Symbol     string      `json:"symbol"`
	Direction  string      `json:"direction"`
	Status     TradeStatus `json:"status"`
	EntryTime  time.Time   `json:"entry_time"`
	EntryPrice float64     `json:"entry_price"`
	ExitTime   time.Time   `json:"exit_time,omitempty"`
	ExitPrice  float64     `json:"exit_price,omitempty"`
	PnlPercent float64     `json:"pnl_percent"`
	PnlDollar  float64     `json:"pnl_dollar"`
	ExitReason string      `json:"exit_reason,omitempty"`
}

// Summary 汇总已平仓交易的整体表现。
type Summary struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	WinRatePercent float64 `json:"win_rate_percent"`
	TotalPnlDollar float64 `json:"total_pnl_dollar"`
	ProfitFactor   float64 `json:"profit_factor"`
	LargestWin     float64 `json:"largest_win"`
	LargestLoss    float64 `json:"largest_loss"`
}

// EventType 表示活动日志事件类型。
type EventType string

const (
	EventSignal    EventType = "signal"
	EventEntry     EventType = "entry"
	EventExit      EventType = "exit"
	EventRiskBlock EventType = "risk_block"
	EventError     EventType = "error"
)

// Event 封装一条活动日志。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
