package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Arrange
	t.Setenv("CONFIG_FILE", "")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "test_user", cfg.KBUserIdentifier)
	assert.Equal(t, "ws://localhost:8090/ws_json", cfg.GraphService.URL)
	assert.Equal(t, 30*time.Second, cfg.GraphService.RequestTimeout)
	assert.Equal(t, 8, cfg.GraphService.LabelConcurrency)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "kbweb.yaml")
	content := `
kbUserIdentifier: editor
graphService:
  url: ws://graph:8090/ws_json
  requestTimeout: 5s
  labelConcurrency: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GRAPH_SERVICE_TIMEOUT", "1500")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "0.5")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "editor", cfg.KBUserIdentifier)
	assert.Equal(t, "ws://graph:8090/ws_json", cfg.GraphService.URL)
	assert.Equal(t, 1500*time.Millisecond, cfg.GraphService.RequestTimeout)
	assert.Equal(t, 2, cfg.GraphService.LabelConcurrency)

	scnetCfg := cfg.ScnetConfig()
	assert.Equal(t, "ws://graph:8090/ws_json", scnetCfg.URL)
	assert.Equal(t, 0.5, scnetCfg.Breaker.FailureThreshold)
	assert.Equal(t, uint32(5), scnetCfg.Breaker.MinRequests)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, true},
		{"empty graph url", func(c *Config) { c.GraphService.URL = "" }, true},
		{"zero timeout", func(c *Config) { c.GraphService.RequestTimeout = 0 }, true},
		{"threshold above one", func(c *Config) { c.GraphService.BreakerFailureThreshold = 1.5 }, true},
		{"production without secret", func(c *Config) { c.Environment = "production" }, true},
		{"production with secret", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "secret"
		}, false},
		{"eventbridge without bus", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "secret"
			c.EnableEventBridge = true
			c.EventBusName = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://kb.example.org,")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://kb.example.org"}, cfg.AllowedOrigins)
}
