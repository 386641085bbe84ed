package config

import (
	"os"
	"path/filepath"
	"testing"

	"drivebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: drivebook
database:
  path: data/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "x-api-extra", cfg.API.Auth.HeaderExtra)
	assert.Equal(t, "configs/vehicles.yaml", cfg.Database.VehiclesPath)
	assert.Equal(t, 2, cfg.Notifications.PollInterval)
	assert.Equal(t, 20, cfg.Notifications.BatchSize)
	assert.Equal(t, 5, cfg.Notifications.MaxRetries)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "data/env.db")

	path := writeConfig(t, `
database:
  path: "${TEST_DB_PATH}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/env.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("missing database path", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("auth enabled without keys", func(t *testing.T) {
		cfg := &Config{}
		cfg.Database.Path = "data/test.db"
		cfg.API.Auth.Enabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty api key", func(t *testing.T) {
		cfg := &Config{}
		cfg.Database.Path = "data/test.db"
		cfg.API.Auth.APIKeys = []APIClientKey{{Name: "portal"}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate api keys", func(t *testing.T) {
		cfg := &Config{}
		cfg.Database.Path = "data/test.db"
		cfg.API.Auth.APIKeys = []APIClientKey{
			{Name: "portal", Key: "k1", Extra: "e1"},
			{Name: "admin", Key: "k1", Extra: "e2"},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{}
		cfg.Database.Path = "data/test.db"
		cfg.API.Auth.Enabled = true
		cfg.API.Auth.APIKeys = []APIClientKey{
			{Name: "portal", Key: "k1", Extra: "e1"},
			{Name: "admin", Key: "k2", Extra: "e2"},
		}
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidateVehicles(t *testing.T) {
	valid := []models.Vehicle{
		{ID: 1, Brand: "Toyota", Model: "Corolla", PricePerDay: 45},
		{ID: 2, Brand: "Skoda", Model: "Kodiaq", PricePerDay: 70},
	}
	assert.NoError(t, ValidateVehicles(valid))

	assert.Error(t, ValidateVehicles([]models.Vehicle{{Brand: "Toyota", Model: "Corolla", PricePerDay: 45}}), "zero id")
	assert.Error(t, ValidateVehicles([]models.Vehicle{
		{ID: 1, Brand: "Toyota", Model: "Corolla", PricePerDay: 45},
		{ID: 1, Brand: "Skoda", Model: "Kodiaq", PricePerDay: 70},
	}), "duplicate id")
	assert.Error(t, ValidateVehicles([]models.Vehicle{{ID: 1, Model: "Corolla", PricePerDay: 45}}), "missing brand")
	assert.Error(t, ValidateVehicles([]models.Vehicle{{ID: 1, Brand: "Toyota", Model: "Corolla"}}), "non-positive price")
}
