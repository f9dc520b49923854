package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "00:00:00", cfg.Slots.DefaultCutoff)
	assert.False(t, cfg.Slots.StrictValidation)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.MemorySize)
	assert.True(t, cfg.Docs.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("SLOTS_STRICT_VALIDATION", "true")
	t.Setenv("SLOT_CACHE_BACKEND", "MEMORY")
	t.Setenv("SLOT_CACHE_TTL", "not-a-duration")
	t.Setenv("SLOT_CACHE_MEMORY_SIZE", "-1")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")

	cfg := fromViper(newTestViper())

	require.Equal(t, EnvProduction, cfg.Env)
	assert.True(t, cfg.Slots.StrictValidation)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.MemorySize)
	assert.False(t, cfg.Docs.Enabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, parseDuration("bogus", 5*time.Second))
	assert.Equal(t, 2*time.Minute, parseDuration("2m", 5*time.Second))
}
