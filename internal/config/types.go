package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"dualtrend/internal/backtest"
	"dualtrend/internal/strategy"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Strategy  strategy.Params `mapstructure:"strategy"`
	Backtest  backtest.Config `mapstructure:"backtest"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig 控制应用级参数。MonitorPort 为0时不启动监控接口。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	Market     string      `mapstructure:"market"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	APIPass    string      `mapstructure:"api_password"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// RiskConfig 管理风控参数。
type RiskConfig struct {
	RiskPerTradePercent float64 `mapstructure:"risk_per_trade_percent"`
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
	MaxDailyLossPercent float64 `mapstructure:"max_daily_loss_percent"`
	MaxDrawdownPercent  float64 `mapstructure:"max_drawdown_percent"`
	DailyResetHour      int     `mapstructure:"daily_reset_hour"`
}

// ExecutionConfig 控制下单行为。
type ExecutionConfig struct {
	Simulation bool `mapstructure:"simulation"`
}

// CacheConfig 控制K线落盘缓存。
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// DatabaseConfig 管理交易流水数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// NotifyConfig 控制邮件通知。
type NotifyConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// SchedulerConfig 控制实盘主循环节奏与历史拉取窗口。
type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SlowLookback int           `mapstructure:"slow_lookback"`
	FastLookback int           `mapstructure:"fast_lookback"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.Market == "" {
		err = multierr.Append(err, errors.New("exchange.market 不能为空"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if paramsErr := c.Strategy.Validate(); paramsErr != nil {
		err = multierr.Append(err, paramsErr)
	}
	if c.Backtest.InitialCapital <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_capital 必须大于0"))
	}
	if c.Backtest.PositionFraction <= 0 || c.Backtest.PositionFraction > 1 {
		err = multierr.Append(err, errors.New("backtest.position_fraction 必须位于(0,1]"))
	}
	if c.Risk.RiskPerTradePercent <= 0 || c.Risk.RiskPerTradePercent > 100 {
		err = multierr.Append(err, errors.New("risk.risk_per_trade_percent 必须位于(0,100]"))
	}
	if c.Risk.MaxPositionFraction <= 0 || c.Risk.MaxPositionFraction > 1 {
		err = multierr.Append(err, errors.New("risk.max_position_fraction 必须位于(0,1]"))
	}
	if c.Risk.MaxDailyLossPercent <= 0 || c.Risk.MaxDailyLossPercent > 100 {
		err = multierr.Append(err, errors.New("risk.max_daily_loss_percent 必须位于(0,100]"))
	}
	if c.Risk.MaxDrawdownPercent <= 0 || c.Risk.MaxDrawdownPercent > 100 {
		err = multierr.Append(err, errors.New("risk.max_drawdown_percent 必须位于(0,100]"))
	}
	if c.Risk.DailyResetHour < 0 || c.Risk.DailyResetHour > 23 {
		err = multierr.Append(err, errors.New("risk.daily_reset_hour 必须位于[0,23]"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		err = multierr.Append(err, errors.New("cache.dir 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" || c.Notify.SMTPPort <= 0 {
			err = multierr.Append(err, errors.New("notify 启用时必须配置 smtp_host 与 smtp_port"))
		}
		if c.Notify.From == "" || len(c.Notify.To) == 0 {
			err = multierr.Append(err, errors.New("notify 启用时必须配置 from 与至少一个收件人"))
		}
	}
	if c.Scheduler.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.poll_interval 必须大于0"))
	}
	if c.Scheduler.SlowLookback <= c.Strategy.EmaPeriod {
		err = multierr.Append(err, errors.New("scheduler.slow_lookback 必须大于 strategy.ema_period"))
	}
	if c.Scheduler.FastLookback <= c.Strategy.BandPeriod {
		err = multierr.Append(err, errors.New("scheduler.fast_lookback 必须大于 strategy.band_period"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
