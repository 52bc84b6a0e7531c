package strategy

// Position 表示当前持仓方向。数值即符号乘子，多空公式共用一套。
type Position int

const (
	PositionFlat  Position = 0
	PositionLong  Position = 1
	PositionShort Position = -1
)

// Sign 返回方向符号乘子。
func (p Position) Sign() float64 {
	return float64(p)
}

// String 返回方向名称。
func (p Position) String() string {
	switch p {
	case PositionLong:
		return "LONG"
	case PositionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Signal 表示一次入场判定的结果。
type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

// String 返回信号名称。
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Direction 返回信号对应的持仓方向。
func (s Signal) Direction() Position {
	switch s {
	case SignalBuy:
		return PositionLong
	case SignalSell:
		return PositionShort
	default:
		return PositionFlat
	}
}

// ExitReason 表示离场原因。
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitBandFlip   ExitReason = "BAND_FLIP"
	ExitEndOfData  ExitReason = "END_OF_DATA"
	ExitManual     ExitReason = "MANUAL"
)
