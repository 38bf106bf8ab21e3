package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "admin_session", cfg.Auth.AdminCookie)
	assert.Equal(t, "session", cfg.Auth.MemberCookie)
	assert.Equal(t, 5*24*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.Meetings.RequireExistingMembership)
	assert.True(t, cfg.Meetings.RejectOverlaps)
	assert.Equal(t, 30, cfg.Meetings.DefaultDurationMin)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "primeslot.yaml")
	content := `
server:
  addr: ":9000"
  requestTimeout: 3s
storage:
  dataDir: /tmp/primeslot
meetings:
  requireExistingMembership: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("PRIMESLOT_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("PRIMESLOT_ADDR", ":9100")
	t.Setenv("PRIMESLOT_RECONCILE_INTERVAL", "1m")
	t.Setenv("PRIMESLOT_TRUST_PROXY_HEADERS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Server.TrustProxyHeaders)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "/tmp/primeslot", cfg.Storage.DataDir)
	assert.True(t, cfg.Meetings.RequireExistingMembership)
	assert.Equal(t, time.Minute, cfg.Reconciler.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("PRIMESLOT_DISABLE_AUTH", "sometimes")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"missing secret", func(c *Config) {}, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"auth disabled", func(c *Config) { c.Auth.Disabled = true }, false},
		{"ok", func(c *Config) { c.Auth.JWTSecret = "0123456789abcdef" }, false},
		{"zero duration", func(c *Config) {
			c.Auth.JWTSecret = "0123456789abcdef"
			c.Meetings.DefaultDurationMin = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
