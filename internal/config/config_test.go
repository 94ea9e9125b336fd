package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"SERVER_ADDRESS", "SERVER_PORT", "DATASTORE_TYPE", "DATASTORE_URI",
	"BOT_PREFIX", "AUTO_VIEW_STATUS", "AUTO_LIKE_STATUS", "AUTO_RECORDING", "AUTO_LIKE_EMOJI",
	"MAX_RETRIES", "PAIRING_BACKOFF", "RECONNECT_DELAY", "OTP_EXPIRY",
	"OWNER_NUMBER", "NEWSLETTER_JIDS", "JWT_SECRET_KEY", "GEMINI_TEMPERATURE",
}

// isolateConfigEnv unsets every variable Load reads so the host environment
// does not leak into assertions.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7001", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Datastore.Driver)
	assert.Equal(t, ".", cfg.Defaults.Prefix)
	assert.True(t, cfg.Defaults.AutoViewStatus)
	assert.True(t, cfg.Defaults.AutoLikeStatus)
	assert.False(t, cfg.Defaults.AutoRecording)
	assert.Equal(t, 3, cfg.Supervisor.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Supervisor.PairingBackoff)
	assert.Equal(t, 10*time.Second, cfg.Supervisor.ReconnectDelay)
	assert.Equal(t, time.Second, cfg.Supervisor.SweepDelay)
	assert.Equal(t, 5*time.Minute, cfg.OTPExpiry)
	assert.InDelta(t, 0.7, cfg.Content.Temperature, 0.001)
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DATASTORE_TYPE", "postgres")
	t.Setenv("OTP_EXPIRY", "300000")
	t.Setenv("OWNER_NUMBER", "+256 754 550399, 94700000000")
	t.Setenv("AUTO_LIKE_EMOJI", `["🔥"]`)
	t.Setenv("MAX_RETRIES", "5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Datastore.Driver)
	assert.Equal(t, 5*time.Minute, cfg.OTPExpiry)
	assert.Equal(t, []string{"256754550399", "94700000000"}, cfg.OwnerNumbers)
	assert.Equal(t, []string{"🔥"}, cfg.Defaults.AutoLikeEmoji)
	assert.Equal(t, 5, cfg.Supervisor.MaxRetries)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("DATASTORE_TYPE", "mongodb")
	t.Setenv("MAX_RETRIES", "0")
	t.Setenv("NEWSLETTER_JIDS", "not-a-channel")
	t.Setenv("JWT_SECRET_KEY", "short")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATASTORE_TYPE")
	assert.Contains(t, err.Error(), "MAX_RETRIES")
	assert.Contains(t, err.Error(), "NEWSLETTER_JIDS")
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides(`{"prefix":"!","autoLikeStatus":false}`)
	require.NoError(t, err)
	require.NotNil(t, o.Prefix)
	assert.Equal(t, "!", *o.Prefix)
	require.NotNil(t, o.AutoLikeStatus)
	assert.False(t, *o.AutoLikeStatus)
	assert.Nil(t, o.AutoViewStatus)

	for _, raw := range []string{
		`not json`,
		`["!"]`,
		`{}`,
		`{"prefix":""}`,
		`{"prefix":"! "}`,
		`{"unknown":true}`,
		`{"autoLikeEmoji":["ab"]}`,
	} {
		_, err := ParseOverrides(raw)
		assert.ErrorIs(t, err, ErrInvalidConfig, raw)
	}
}

func TestSettingsApply(t *testing.T) {
	defaults := Settings{Prefix: ".", AutoViewStatus: true, AutoLikeStatus: true, AutoLikeEmoji: []string{"🔥"}}
	prefix := "!"
	off := false

	got := defaults.Apply(Overrides{Prefix: &prefix, AutoViewStatus: &off})

	assert.Equal(t, "!", got.Prefix)
	assert.False(t, got.AutoViewStatus)
	assert.True(t, got.AutoLikeStatus)
	assert.Equal(t, []string{"🔥"}, got.AutoLikeEmoji)
	assert.Equal(t, ".", defaults.Prefix)
}

func TestSettingsOverridesRoundTrip(t *testing.T) {
	defaults := Settings{Prefix: "#", AutoRecording: true, AutoLikeEmoji: []string{"👍"}}
	assert.Equal(t, defaults, Settings{}.Apply(defaults.Overrides()))
}
