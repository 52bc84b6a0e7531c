package backtest

// Config 定义回测参数。
type Config struct {
	InitialCapital   float64 `mapstructure:"initial_capital"`   // 初始资金
	PositionFraction float64 `mapstructure:"position_fraction"` // 单笔仓位占比
	RiskFreeRate     float64 `mapstructure:"risk_free_rate"`    // 年化无风险利率
}

// DefaultConfig 返回默认回测参数。
func DefaultConfig() Config {
	return Config{
		InitialCapital:   100000,
		PositionFraction: 0.10,
		RiskFreeRate:     0.02,
	}
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 100000
	}
	if cfg.PositionFraction <= 0 || cfg.PositionFraction > 1 {
		cfg.PositionFraction = 0.10
	}
	if cfg.RiskFreeRate < 0 {
		cfg.RiskFreeRate = 0
	}
	return cfg
}
