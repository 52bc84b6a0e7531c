package analytics

import (
	"math"
	"testing"
)

func TestComputeDegenerateInputs(t *testing.T) {
	if got := Compute(nil, 24*365, 0.02); got != (Extended{}) {
		t.Errorf("Compute(nil) = %+v, want zero value", got)
	}
	if got := Compute([]float64{10000}, 24*365, 0.02); got != (Extended{}) {
		t.Errorf("Compute(single point) = %+v, want zero value", got)
	}
	if got := Compute([]float64{10000, 10100}, 0, 0.02); got != (Extended{}) {
		t.Errorf("Compute(periodsPerYear=0) = %+v, want zero value", got)
	}
}

func TestComputeFlatCurve(t *testing.T) {
	got := Compute([]float64{10000, 10000, 10000}, 24*365, 0)
	if got.SharpeRatio != 0 || got.SortinoRatio != 0 {
		t.Errorf("flat curve ratios = (%f, %f), want zeros", got.SharpeRatio, got.SortinoRatio)
	}
	if got.MaxDrawdownPercent != 0 {
		t.Errorf("flat curve drawdown = %f, want 0", got.MaxDrawdownPercent)
	}
}

func TestDrawdown(t *testing.T) {
	// 峰值 12000，谷底 9000：回撤 25%，连续回撤 3 根。
	equity := []float64{10000, 12000, 11000, 10000, 9000, 12500}
	dd, bars := drawdown(equity)

	if math.Abs(dd-25) > 1e-9 {
		t.Errorf("max drawdown = %f, want 25", dd)
	}
	if bars != 3 {
		t.Errorf("drawdown bars = %d, want 3", bars)
	}
}

func TestSharpeSignTracksTrend(t *testing.T) {
	rising := []float64{10000, 10100, 10250, 10300, 10500}
	falling := []float64{10500, 10300, 10250, 10100, 10000}

	up := Compute(rising, 24*365, 0)
	down := Compute(falling, 24*365, 0)

	if up.SharpeRatio <= 0 {
		t.Errorf("rising curve sharpe = %f, want > 0", up.SharpeRatio)
	}
	if down.SharpeRatio >= 0 {
		t.Errorf("falling curve sharpe = %f, want < 0", down.SharpeRatio)
	}
	if down.SortinoRatio >= 0 {
		t.Errorf("falling curve sortino = %f, want < 0", down.SortinoRatio)
	}
}
