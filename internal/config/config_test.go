package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "dev")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, "products", cfg.Search.Index)
	assert.False(t, cfg.CSRFEnabled)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_ProdTurnsOnCookieSecurity(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "prod")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.CSRFEnabled)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "x")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL, JWT_SECRET")
}

func TestLoad_AdminPair(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_UnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("ES_INDEX"))
	t.Cleanup(func() { _ = os.Unsetenv("ES_INDEX") })
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ES_INDEX=catalog\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.Search.Index)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	setRequired(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
