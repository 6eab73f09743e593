package setup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 3s
database:
  driver: postgres
  dsn: "host=db user=bm"
ledger:
  max_attempts: 3
admin:
  jwt_secret: "from-the-yaml-file"
`)
	t.Setenv("BM_LEDGER_MAX_ATTEMPTS", "7")
	t.Setenv("BM_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("BM_MARKETS_SEED_DEMO", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Ledger.MaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Markets.SeedDemo)
	assert.Equal(t, "from-the-yaml-file", cfg.Admin.JWTSecret)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BM_ADMIN_JWT_SECRET", "a-long-enough-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	want := Default()
	want.Admin.JWTSecret = "a-long-enough-secret"
	assert.Equal(t, want, *cfg)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing admin secret", nil},
		{"short admin secret", map[string]string{"BM_ADMIN_JWT_SECRET": "short"}},
		{"unknown driver", map[string]string{"BM_ADMIN_JWT_SECRET": "a-long-enough-secret", "BM_DATABASE_DRIVER": "mysql"}},
		{"zero attempts", map[string]string{"BM_ADMIN_JWT_SECRET": "a-long-enough-secret", "BM_LEDGER_MAX_ATTEMPTS": "0"}},
		{"bad level", map[string]string{"BM_ADMIN_JWT_SECRET": "a-long-enough-secret", "BM_LOG_LEVEL": "loud"}},
		{"unparsable duration", map[string]string{"BM_ADMIN_JWT_SECRET": "a-long-enough-secret", "BM_SERVER_READ_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parse config")
}
