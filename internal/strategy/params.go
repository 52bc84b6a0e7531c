package strategy

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Params 为策略可调参数。
type Params struct {
	EmaPeriod         int     `mapstructure:"ema_period"`
	BandPeriod        int     `mapstructure:"band_period"`
	BandMultiplier    float64 `mapstructure:"band_multiplier"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent"`
	StopLossPercent   float64 `mapstructure:"stop_loss_percent"`
}

// DefaultParams 返回策略默认参数。
func DefaultParams() Params {
	return Params{
		EmaPeriod:         200,
		BandPeriod:        10,
		BandMultiplier:    3.0,
		TakeProfitPercent: 1.2,
		StopLossPercent:   0.4,
	}
}

// Validate 按取值范围校验参数。
func (p Params) Validate() error {
	var err error

	if p.EmaPeriod <= 0 {
		err = multierr.Append(err, errors.New("ema_period 必须大于0"))
	}
	if p.BandPeriod <= 0 {
		err = multierr.Append(err, errors.New("band_period 必须大于0"))
	}
	if p.BandMultiplier <= 0 {
		err = multierr.Append(err, errors.New("band_multiplier 必须大于0"))
	}
	if p.TakeProfitPercent <= 0 {
		err = multierr.Append(err, errors.New("take_profit_percent 必须大于0"))
	}
	if p.StopLossPercent <= 0 {
		err = multierr.Append(err, errors.New("stop_loss_percent 必须大于0"))
	}

	if err != nil {
		return fmt.Errorf("策略参数校验失败: %w", err)
	}
	return nil
}
