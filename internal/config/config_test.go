package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8431", cfg.HTTPAddr)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.True(t, cfg.UsingInsecureSecret())
}

func TestLoadExplicitValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_MAX_CONNS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsingInsecureSecret())
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 12, cfg.DatabaseMaxConns)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}
