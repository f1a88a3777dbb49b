package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestEnvSub(t *testing.T) {
	defer viper.Reset()
	t.Setenv("UPSTOX_ACCESS_TOKEN", "secret-token")
	viper.Set("exchange.access_token", "${UPSTOX_ACCESS_TOKEN}")

	require.Equal(t, "secret-token", envSub("exchange.access_token"))
}

func TestLoadDefaults(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("exchange.access_token", "secret-token")
	viper.Set("strategy.quantity", 20)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "BSE_INDEX|SENSEX", cfg.Strategy.UnderlyingKey)
	require.Equal(t, "09:17", cfg.Strategy.AtmTime)
	require.Equal(t, "09:30", cfg.Strategy.WindowEnd)
	require.Equal(t, "15:30", cfg.Strategy.ExitTime)
	require.Equal(t, 1.5, cfg.Strategy.BuyPercent)
	require.Equal(t, 1.25, cfg.Strategy.StopPercent)
	require.Equal(t, 2.5, cfg.Strategy.TargetPercent)
	require.Equal(t, 100.0, cfg.Strategy.StrikeStep)
	require.Equal(t, 0.05, cfg.Strategy.TickSize)
	require.Equal(t, "https://api.upstox.com", cfg.Exchange.BaseUrl)
}

func TestLoadValidation(t *testing.T) {
	defer viper.Reset()

	viper.Reset()
	viper.Set("strategy.quantity", 20)
	_, err := Load()
	require.Error(t, err) // no access token

	viper.Reset()
	viper.Set("exchange.access_token", "secret-token")
	_, err = Load()
	require.Error(t, err) // quantity missing

	viper.Reset()
	viper.Set("exchange.access_token", "secret-token")
	viper.Set("strategy.quantity", 20)
	viper.Set("strategy.exit_time", "полдень")
	_, err = Load()
	require.Error(t, err)
}
