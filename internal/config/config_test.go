package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_NAME", "APP_HOST", "APP_PORT", "HTTP_REQUEST_TIMEOUT_SECONDS",
		"REDIS_ADDR", "REDIS_DB", "AUTH_JWT_ISSUER", "AUTH_ACCESS_TOKEN_TTL_MINUTES",
		"NOTIFY_USER_CHANNEL", "NOTIFY_PRESENCE_CHANNEL", "NOTIFY_PUBLISH_TIMEOUT_SECONDS",
		"POSTGRES_RUN_MIGRATIONS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "workforce-service", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	require.Equal(t, "workforce-idp", cfg.Auth.Issuer)
	require.Equal(t, 60*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, "workforce.notify.user", cfg.Notify.UserChannel)
	require.Equal(t, "workforce.presence", cfg.Notify.PresenceChannel)
	require.Equal(t, 2*time.Second, cfg.Notify.PublishTimeout())
	require.True(t, cfg.Postgres.RunMigrations)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("NOTIFY_PUBLISH_TIMEOUT_SECONDS", "5")
	t.Setenv("AUTH_JWT_ISSUER", "corp-idp")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.App.Addr())
	require.False(t, cfg.Postgres.RunMigrations)
	require.Equal(t, 5*time.Second, cfg.Notify.PublishTimeout())
	require.Equal(t, "corp-idp", cfg.Auth.Issuer)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestPublishTimeoutFloor(t *testing.T) {
	cfg := NotifyConfig{PublishTimeoutSeconds: 0}
	require.Equal(t, 2*time.Second, cfg.PublishTimeout())
}

func TestRequestTimeoutDisabled(t *testing.T) {
	cfg := AppConfig{RequestTimeoutSeconds: 0}
	require.Equal(t, time.Duration(0), cfg.RequestTimeout())
}
