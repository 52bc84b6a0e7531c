package analytics

import "math"

// Extended 为权益曲线的进阶绩效指标，补充在基础回测统计之外。
type Extended struct {
	SharpeRatio        float64
	SortinoRatio       float64
	MaxDrawdownPercent float64
	MaxDrawdownBars    int
}

// Compute 从权益序列计算进阶指标。periodsPerYear 为年化换算的采样次数
// （小时K线取 24*365），riskFreeRate 为年化无风险利率。
// 样本不足两点时返回全零结果。
func Compute(equity []float64, periodsPerYear, riskFreeRate float64) Extended {
	var out Extended
	if len(equity) < 2 || periodsPerYear <= 0 {
		return out
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}

	out.SharpeRatio = sharpe(returns, periodsPerYear, riskFreeRate)
	out.SortinoRatio = sortino(returns, periodsPerYear, riskFreeRate)
	out.MaxDrawdownPercent, out.MaxDrawdownBars = drawdown(equity)
	return out
}

func sharpe(returns []float64, periodsPerYear, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	std := stdOf(returns, mean)
	if std == 0 {
		return 0
	}
	excess := mean - riskFreeRate/periodsPerYear
	return excess / std * math.Sqrt(periodsPerYear)
}

func sortino(returns []float64, periodsPerYear, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}

	downMean := meanOf(downside)
	downStd := stdOf(downside, downMean)
	if downStd == 0 {
		return 0
	}

	excess := meanOf(returns) - riskFreeRate/periodsPerYear
	return excess / downStd * math.Sqrt(periodsPerYear)
}

// drawdown 返回最大回撤的百分比幅度与最长连续回撤K线数。
func drawdown(equity []float64) (float64, int) {
	var peak float64
	maxDD := 0.0
	longest := 0
	current := 0

	for _, v := range equity {
		if v > peak {
			peak = v
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD, longest
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
