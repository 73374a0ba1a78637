package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/config"
)

func TestLoadRequiredVars(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost/oms",
		"REDIS_URL":        "redis://localhost:6379",
		"JWT_SECRET":       "secret",
		"PORT":             "",
		"ERP_SYNC_ENABLED": "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 25, cfg.CatalogDefaultPerPage)
	require.Equal(t, 100, cfg.CatalogMaxPerPage)
	require.False(t, cfg.ERPSyncEnabled)
}

func TestERPSyncRequiresURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost/oms",
		"REDIS_URL":        "redis://localhost:6379",
		"JWT_SECRET":       "secret",
		"ERP_SYNC_ENABLED": "true",
		"ERP_SYNC_URL":     "",
	})
	require.ErrorContains(t, err, "ERP_SYNC_URL")
}
