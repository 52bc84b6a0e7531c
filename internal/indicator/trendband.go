package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"dualtrend/internal/market"
)

// 轨道方向取值：+1 表示下轨生效（多头趋势），-1 表示上轨生效（空头趋势），
// 0 表示ATR尚未就绪的预热区。
const (
	DirectionUp   = 1
	DirectionDown = -1
)

// BandOverlay 保存趋势轨道指标的逐K线结果。
// Bullish 记录收盘价是否高于轨道值，它与 Direction 并不等价：翻转与再入场
// 逻辑依赖的是收盘价相对轨道的位置，而非当前生效的轨道侧。
type BandOverlay struct {
	Value     []float64
	Direction []int
	Bullish   []bool
}

// Valid 判断第 i 根K线的轨道值是否已脱离预热区。
func (o BandOverlay) Valid(i int) bool {
	return i >= 0 && i < len(o.Value) && !math.IsNaN(o.Value[i])
}

// TrendBand 计算递归趋势轨道。
//
// ATR 取真实波幅在 period 窗口上的滚动均值；候选上下轨为 (high+low)/2 ±
// multiplier×ATR。上轨只能下移或保持，除非前一根收盘价已突破前上轨（下轨对
// 称），随后按前一根的方向与收盘价是否穿越生效轨道做四分支解析：方向仅在收
// 盘价穿越生效轨道时翻转。第 i 根的结果依赖第 i-1 根的解析值，必须按时间顺
// 序左折叠，不能向量化。
func TrendBand(s market.Series, period int, multiplier float64) BandOverlay {
	n := s.Len()
	overlay := BandOverlay{
		Value:     make([]float64, n),
		Direction: make([]int, n),
		Bullish:   make([]bool, n),
	}
	for i := range overlay.Value {
		overlay.Value[i] = math.NaN()
	}

	if n == 0 || period <= 0 || multiplier <= 0 || n < period {
		return overlay
	}

	tr := make([]float64, n)
	tr[0] = s.High[0] - s.Low[0]
	for i := 1; i < n; i++ {
		hl := s.High[i] - s.Low[i]
		hc := math.Abs(s.High[i] - s.Close[i-1])
		lc := math.Abs(s.Low[i] - s.Close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	// talib.Sma 在窗口未满处输出占位值，预热区由下标控制，不会被读取。
	atr := talib.Sma(tr, period)

	start := period - 1
	mid := (s.High[start] + s.Low[start]) / 2
	finalUpper := mid + multiplier*atr[start]
	finalLower := mid - multiplier*atr[start]

	// 种子：首个ATR有效K线以上轨作为轨道值。
	value := finalUpper
	direction := DirectionDown
	overlay.Value[start] = value
	overlay.Direction[start] = direction
	overlay.Bullish[start] = s.Close[start] > value

	for i := start + 1; i < n; i++ {
		mid := (s.High[i] + s.Low[i]) / 2
		upper := mid + multiplier*atr[i]
		lower := mid - multiplier*atr[i]

		if !(upper < finalUpper || s.Close[i-1] > finalUpper) {
			upper = finalUpper
		}
		if !(lower > finalLower || s.Close[i-1] < finalLower) {
			lower = finalLower
		}

		if direction == DirectionUp {
			if s.Close[i] < lower {
				direction = DirectionDown
				value = upper
			} else {
				value = lower
			}
		} else {
			if s.Close[i] > upper {
				direction = DirectionUp
				value = lower
			} else {
				value = upper
			}
		}

		finalUpper = upper
		finalLower = lower
		overlay.Value[i] = value
		overlay.Direction[i] = direction
		overlay.Bullish[i] = s.Close[i] > value
	}

	return overlay
}
