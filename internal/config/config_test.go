package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://kitchen@localhost/kitchen")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("JWT_TOKEN_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 5*time.Second, cfg.HTTP.ReadHeaderTimeout)
	require.Equal(t, "postgres://kitchen@localhost/kitchen", cfg.Database.DSN)
	require.True(t, cfg.Database.RunMigrations)
	require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	require.Equal(t, "Приятного аппетита", cfg.Render.Caption)
	require.False(t, cfg.Events.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dsn: postgres://from-file
auth:
  jwt_secret: `+testSecret+`
render:
  page_size: A5
  caption: Bon appetit
`), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("RENDER_PAGE_SIZE", "Letter")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres://from-file", cfg.Database.DSN)
	require.Equal(t, "Letter", cfg.Render.PageSize)
	require.Equal(t, "Bon appetit", cfg.Render.Caption)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "database.dsn is required")
	require.Contains(t, err.Error(), "jwt_secret")
}

func TestValidate_Timezone(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.DSN = "postgres://x"
	cfg.Auth.JWTSecret = testSecret
	cfg.Render.Timezone = "Europe/Moscow"
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Moscow", loc.String())

	cfg.Render.Timezone = "Mars/Olympus"
	require.Error(t, cfg.Validate())
}

func TestValidate_RenderSettings(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.DSN = "postgres://x"
	cfg.Auth.JWTSecret = testSecret
	cfg.Render.PageSize = "B9"
	require.Error(t, cfg.Validate())

	cfg.Render.PageSize = "A4"
	cfg.HTTP.ShutdownTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestEnvTransformFunc(t *testing.T) {
	require.Equal(t, "database.dsn", envTransformFunc("DATABASE_URL"))
	require.Equal(t, "", envTransformFunc("HOME"))
}
