package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Exchange ExchangeConfig
	Strategy StrategyConfig
	Runtime  RuntimeConfig
}

type ExchangeConfig struct {
	BaseUrl      string
	PortfolioURL string
	AccessToken  string
}

type StrategyConfig struct {
	UnderlyingKey   string
	Quantity        int
	AtmTime         string
	WindowStart     string
	WindowEnd       string
	ExitTime        string
	BuyPercent      float64
	StopPercent     float64
	TargetPercent   float64
	StrikeStep      float64
	TickSize        float64
	TickSizeEnabled bool
}

type RuntimeConfig struct {
	Log LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("strategy.underlying_key", "BSE_INDEX|SENSEX")
	viper.SetDefault("strategy.atm_time", "09:17")
	viper.SetDefault("strategy.window_start", "09:17")
	viper.SetDefault("strategy.window_end", "09:30")
	viper.SetDefault("strategy.exit_time", "15:30")
	viper.SetDefault("strategy.buy_percent", 1.5)
	viper.SetDefault("strategy.stop_percent", 1.25)
	viper.SetDefault("strategy.target_percent", 2.5)
	viper.SetDefault("strategy.strike_step", 100)
	viper.SetDefault("strategy.tick_size", 0.05)
	viper.SetDefault("exchange.base_url", "https://api.upstox.com")
	viper.SetDefault("exchange.portfolio_url", "wss://api.upstox.com/v2/feed/portfolio-stream-feed")

	cfg.Exchange = ExchangeConfig{
		BaseUrl:      viper.GetString("exchange.base_url"),
		PortfolioURL: viper.GetString("exchange.portfolio_url"),
		AccessToken:  envSub("exchange.access_token"),
	}

	cfg.Strategy = StrategyConfig{
		UnderlyingKey:   viper.GetString("strategy.underlying_key"),
		Quantity:        viper.GetInt("strategy.quantity"),
		AtmTime:         viper.GetString("strategy.atm_time"),
		WindowStart:     viper.GetString("strategy.window_start"),
		WindowEnd:       viper.GetString("strategy.window_end"),
		ExitTime:        viper.GetString("strategy.exit_time"),
		BuyPercent:      viper.GetFloat64("strategy.buy_percent"),
		StopPercent:     viper.GetFloat64("strategy.stop_percent"),
		TargetPercent:   viper.GetFloat64("strategy.target_percent"),
		StrikeStep:      viper.GetFloat64("strategy.strike_step"),
		TickSize:        viper.GetFloat64("strategy.tick_size"),
		TickSizeEnabled: viper.GetBool("strategy.tick_size_enabled"),
	}

	cfg.Runtime = RuntimeConfig{
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Exchange.AccessToken == "" {
		return fmt.Errorf("Не задан access token (exchange.access_token).")
	}
	if c.Strategy.Quantity <= 0 {
		return fmt.Errorf("Некорректное количество: %d", c.Strategy.Quantity)
	}
	for _, field := range []struct {
		name, value string
	}{
		{"atm_time", c.Strategy.AtmTime},
		{"window_start", c.Strategy.WindowStart},
		{"window_end", c.Strategy.WindowEnd},
		{"exit_time", c.Strategy.ExitTime},
	} {
		if _, err := time.Parse("15:04", field.value); err != nil {
			return fmt.Errorf("Некорректное время %s=%q: %w", field.name, field.value, err)
		}
	}
	return nil
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
