package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "dualtrend"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.monitor_port", 0)

	v.SetDefault("execution.simulation", true)

	v.SetDefault("exchange.name", "binanceusdm")
	v.SetDefault("exchange.market", "BTC/USDT:USDT")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.retry.max_attempts", 5)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("strategy.ema_period", 200)
	v.SetDefault("strategy.band_period", 10)
	v.SetDefault("strategy.band_multiplier", 3.0)
	v.SetDefault("strategy.take_profit_percent", 1.2)
	v.SetDefault("strategy.stop_loss_percent", 0.4)

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.position_fraction", 0.10)
	v.SetDefault("backtest.risk_free_rate", 0.02)

	v.SetDefault("risk.risk_per_trade_percent", 1.0)
	v.SetDefault("risk.max_position_fraction", 0.20)
	v.SetDefault("risk.max_daily_loss_percent", 3.0)
	v.SetDefault("risk.max_drawdown_percent", 15.0)
	v.SetDefault("risk.daily_reset_hour", 0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "data/candles")

	v.SetDefault("database.path", "data/dualtrend.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_port", 587)

	v.SetDefault("scheduler.poll_interval", "1m")
	v.SetDefault("scheduler.slow_lookback", 400)
	v.SetDefault("scheduler.fast_lookback", 200)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
