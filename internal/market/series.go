package market

import (
	"sort"
	"time"
)

const (
	// TimeframeSlow 为趋势过滤周期（小时线）。
	TimeframeSlow = "1h"
	// TimeframeFast 为信号触发周期（十分钟线）。
	TimeframeFast = "10m"
)

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series 将K线数据拆分为便于指标计算的列式序列，时间升序。
type Series struct {
	Timestamps []time.Time
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64
}

// NewSeries 从K线切片构建 Series，时间统一为 UTC。
func NewSeries(candles []Candle) Series {
	length := len(candles)
	series := Series{
		Timestamps: make([]time.Time, length),
		Open:       make([]float64, length),
		High:       make([]float64, length),
		Low:        make([]float64, length),
		Close:      make([]float64, length),
		Volume:     make([]float64, length),
	}

	for i := 0; i < length; i++ {
		candle := candles[i]
		series.Timestamps[i] = candle.Timestamp.UTC()
		series.Open[i] = candle.Open
		series.High[i] = candle.High
		series.Low[i] = candle.Low
		series.Close[i] = candle.Close
		series.Volume[i] = candle.Volume
	}

	return series
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Close)
}

// At 返回第 i 根K线。
func (s Series) At(i int) Candle {
	return Candle{
		Timestamp: s.Timestamps[i],
		Open:      s.Open[i],
		High:      s.High[i],
		Low:       s.Low[i],
		Close:     s.Close[i],
		Volume:    s.Volume[i],
	}
}

// AlignAt 返回时间戳不晚于 ts 的最后一根K线下标；不存在时返回 -1。
// 两个序列采样周期不同且互不对齐，必须用二分而非线性扫描。
func (s Series) AlignAt(ts time.Time) int {
	n := len(s.Timestamps)
	if n == 0 {
		return -1
	}
	idx := sort.Search(n, func(i int) bool {
		return s.Timestamps[i].After(ts)
	})
	return idx - 1
}

// Sorted 检查时间戳是否严格递增。
func (s Series) Sorted() bool {
	for i := 1; i < len(s.Timestamps); i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return false
		}
	}
	return true
}

// Candles 还原为K线切片。
func (s Series) Candles() []Candle {
	out := make([]Candle, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}
