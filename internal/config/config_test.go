package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, "wanwu_", cfg.Namespace)
	assert.Equal(t, "qwen-plus", cfg.QwenModel)
	assert.Equal(t, "qwen-vl-plus", cfg.QwenVisionModel)
	assert.Equal(t, 30*time.Second, cfg.QwenTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.RitualAutoDelay)
	assert.Equal(t, "http://127.0.0.1:8080/uploads", cfg.StoragePublicURL)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WANWU_HTTP_ADDR", ":9000")
	t.Setenv("WANWU_TIMEZONE", "UTC")
	t.Setenv("WANWU_STORAGE_DRIVER", "http")
	t.Setenv("WANWU_STORAGE_ENDPOINT", "https://oss.example.com")
	t.Setenv("WANWU_STORAGE_BUCKET", "wanwu")
	t.Setenv("WANWU_QWEN_TIMEOUT", "5s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "https://oss.example.com/wanwu", cfg.StoragePublicURL)
	assert.Equal(t, 5*time.Second, cfg.QwenTimeout)
}

func TestResolveDefaultsRejectsBadValues(t *testing.T) {
	t.Setenv("WANWU_STORAGE_DRIVER", "ftp")
	_, err := New()
	require.Error(t, err)

	t.Setenv("WANWU_STORAGE_DRIVER", "http")
	_, err = New()
	require.Error(t, err)

	t.Setenv("WANWU_STORAGE_DRIVER", "local")
	t.Setenv("WANWU_TIMEZONE", "Mars/Olympus")
	_, err = New()
	require.Error(t, err)
}

func TestOverridesApplyBeforeDefaults(t *testing.T) {
	cfg, err := New(func(c *Config) { c.HTTPAddr = "0.0.0.0:7000" })
	require.NoError(t, err)
	assert.Equal(t, "http://0.0.0.0:7000/uploads", cfg.StoragePublicURL)
}
