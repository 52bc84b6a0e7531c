package indicator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"dualtrend/internal/market"
)

// Overview 为一个周期的常用指标快照，供轮询日志与交易日志落盘使用，
// 不参与信号判定。
type Overview struct {
	Timeframe     string
	EMA50         float64
	RSI14         float64
	ATR14         float64
	ATRRelative   float64
	VolumeRatio   float64
	Close         float64
	PreviousClose float64
}

// ComputeOverview 依据给定序列计算指标快照。
func ComputeOverview(timeframe string, s market.Series) (Overview, error) {
	if s.Len() == 0 {
		return Overview{}, fmt.Errorf("indicator: 计算快照失败: 输入K线为空")
	}

	ema50 := talib.Ema(s.Close, 50)
	rsi := talib.Rsi(s.Close, 14)
	atr := talib.Atr(s.High, s.Low, s.Close, 14)

	volumeAvg := average(SliceTail(s.Volume, 20))
	lastClose := Last(s.Close)
	atrAbs := Last(atr)

	return Overview{
		Timeframe:     timeframe,
		EMA50:         Last(ema50),
		RSI14:         Last(rsi),
		ATR14:         atrAbs,
		ATRRelative:   SafeDivide(atrAbs, lastClose),
		VolumeRatio:   SafeDivide(Last(s.Volume), volumeAvg),
		Close:         lastClose,
		PreviousClose: Prev(s.Close),
	}, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
