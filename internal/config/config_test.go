package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
	require.Equal(t, "GB", cfg.GeoIP.DefaultCountry)
	require.True(t, cfg.BinanceConnect.Enabled)
	require.True(t, cfg.Transak.Enabled)

	// Without identity configuration the providers are not ready.
	require.False(t, cfg.BinanceConnectReady())
	require.False(t, cfg.TransakReady())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ONRAMP_HTTP_ADDR", ":9999")
	t.Setenv("ONRAMP_REFRESH_INTERVAL", "1m")
	t.Setenv("ONRAMP_TRANSAK_API_KEY", "partner-key")
	t.Setenv("ONRAMP_BINANCE_MERCHANT_CODE", "merchant")
	t.Setenv("ONRAMP_BINANCE_PRIVATE_KEY_FILE", "/etc/keys/merchant.pem")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, time.Minute, cfg.Refresh.Interval)
	require.True(t, cfg.TransakReady())
	require.True(t, cfg.BinanceConnectReady())
}

func TestLoad_RejectsBrokenConfig(t *testing.T) {
	t.Setenv("ONRAMP_REFRESH_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
}
