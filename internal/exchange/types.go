package exchange

import (
	"time"

	"dualtrend/internal/market"
)

// MarketSnapshot 聚合趋势周期与信号周期的K线数据。
type MarketSnapshot struct {
	Symbol      string
	SlowCandles []market.Candle
	FastCandles []market.Candle
	RetrievedAt time.Time
}

// SnapshotRequest 控制一次快照采集的参数。
type SnapshotRequest struct {
	SlowLimit int
	FastLimit int
}

// DefaultSnapshotRequest 返回默认快照参数。
func DefaultSnapshotRequest() SnapshotRequest {
	return SnapshotRequest{
		SlowLimit: 400,
		FastLimit: 200,
	}
}
