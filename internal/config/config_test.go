package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
token:
  secret: test-secret
`

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultListenPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, DefaultBcryptCost, cfg.Auth.BcryptCost)
	assert.Equal(t, DefaultTokenTTL, cfg.Token.TTL.Duration())
	assert.Equal(t, DefaultGateInterval, cfg.Gate.Interval.Duration())
	assert.Equal(t, DefaultClientTTL, cfg.Gate.ClientTTL.Duration())
	assert.Equal(t, DefaultExemptPrefixes(), cfg.Gate.ExemptPrefixes)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  address: 127.0.0.1
  port: 9000
  readTimeout: "10s"
log:
  level: debug
  format: console
store:
  type: redis
  redis:
    url: redis://localhost:6379
    keyPrefix: "authgate:"
auth:
  bcryptCost: 12
token:
  secret: super-secret
  ttl: "20m"
  issuer: authgate-test
gate:
  interval: "2s"
  exemptPrefixes:
    - /auth
    - /static
  clientTTL: "5m"
  globalRPS: 100
  globalBurst: 10
metrics:
  enabled: false
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Store.Type)
	require.NotNil(t, cfg.Store.Redis)
	assert.Equal(t, "redis://localhost:6379", cfg.Store.Redis.URL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "super-secret", cfg.Token.Secret)
	assert.Equal(t, 20*time.Minute, cfg.Token.TTL.Duration())
	assert.Equal(t, 2*time.Second, cfg.Gate.Interval.Duration())
	assert.Equal(t, []string{"/auth", "/static"}, cfg.Gate.ExemptPrefixes)
	assert.Equal(t, 100, cfg.Gate.GlobalRPS)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromReader_EnvSubstitution(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_SECRET", "from-env")

	yaml := `
token:
  secret: ${AUTHGATE_TEST_SECRET}
  issuer: ${AUTHGATE_TEST_ISSUER:-fallback}
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token.Secret)
	assert.Equal(t, "fallback", cfg.Token.Issuer)
}

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing secret",
			yaml: `
log:
  level: info
`,
		},
		{
			name: "bad port",
			yaml: `
server:
  port: 99999
token:
  secret: s
`,
		},
		{
			name: "redis store without url",
			yaml: `
store:
  type: redis
token:
  secret: s
`,
		},
		{
			name: "unknown store type",
			yaml: `
store:
  type: mongo
token:
  secret: s
`,
		},
		{
			name: "negative global rps",
			yaml: `
token:
  secret: s
gate:
  globalRPS: -1
`,
		},
		{
			name: "malformed yaml",
			yaml: `token: [`,
		},
		{
			name: "bad duration",
			yaml: `
token:
  secret: s
  ttl: "twenty minutes"
`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadFromReader(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-secret", cfg.Token.Secret)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDuration_Marshaling(t *testing.T) {
	t.Parallel()

	d := Duration(90 * time.Second)
	out, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}
