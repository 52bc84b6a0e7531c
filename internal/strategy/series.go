package strategy

import (
	"dualtrend/internal/indicator"
	"dualtrend/internal/market"
)

// SlowSeries 为附加EMA覆盖层的趋势过滤序列。
type SlowSeries struct {
	market.Series
	EMA []float64
}

// FastSeries 为附加趋势轨道覆盖层的信号触发序列。
type FastSeries struct {
	market.Series
	Band indicator.BandOverlay
}

// Prepare 一次性计算两个序列的指标覆盖层，回放期间不再变更。
func Prepare(slow, fast market.Series, params Params) (SlowSeries, FastSeries) {
	return SlowSeries{
			Series: slow,
			EMA:    indicator.Ema(slow.Close, params.EmaPeriod),
		}, FastSeries{
			Series: fast,
			Band:   indicator.TrendBand(fast, params.BandPeriod, params.BandMultiplier),
		}
}

// aboveEma 判断第 i 根慢速K线收盘价是否高于EMA。
func (s SlowSeries) aboveEma(i int) bool {
	return s.Close[i] > s.EMA[i]
}

// belowEma 判断第 i 根慢速K线收盘价是否低于EMA。
func (s SlowSeries) belowEma(i int) bool {
	return s.Close[i] < s.EMA[i]
}
