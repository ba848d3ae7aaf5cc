package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("DEFAULT_BRANCH_ID", "")
	cfg := Load()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIBaseURL)
	assert.Equal(t, int64(1), cfg.DefaultBranch)
	assert.Equal(t, 10*time.Second, cfg.LoginTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://inventario.example.com")
	t.Setenv("API_TIMEOUT", "3")
	t.Setenv("DEFAULT_BRANCH_ID", "4")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	cfg := Load()
	assert.Equal(t, "https://inventario.example.com", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, int64(4), cfg.DefaultBranch)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestAtoienvFallsBackOnGarbage(t *testing.T) {
	t.Setenv("BOOKSTOCK_CACHE_SIZE", "mucho")
	assert.Equal(t, 512, Load().CacheSize)
}
