package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: portal
    user: portal
  redis:
    address: localhost:6379
auth:
  keycloak:
    url: http://localhost:8081
    realm: portal
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "programs", cfg.Database.Elasticsearch.ProgramsIndex)
	assert.Equal(t, "portal_session", cfg.Auth.Session.CookieName)
	assert.Equal(t, "admin@immigration-portal.com", cfg.Auth.BootstrapAdminEmail)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "ses", cfg.Notifications.Provider)
	assert.Equal(t, "Immigration Portal <notifications@immigration-portal.com>", cfg.Notifications.From)
	assert.Equal(t, int64(10<<20), cfg.Wizard.MaxUploadBytes)
	assert.Equal(t, cfg.APIs.GenAI.Model, cfg.APIs.GenAI.VisionModel)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PORTAL_DB_HOST", "db.internal")

	body := `
database:
  postgres:
    host: ${TEST_PORTAL_DB_HOST}
    database: portal
    user: portal
  redis:
    address: localhost:6379
auth:
  keycloak:
    url: http://localhost:8081
    realm: portal
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing postgres host",
			body: `
database:
  postgres:
    database: portal
    user: portal
  redis:
    address: localhost:6379
auth:
  keycloak:
    url: http://localhost:8081
    realm: portal
`,
			wantErr: "database.postgres.host is required",
		},
		{
			name: "missing keycloak realm",
			body: `
database:
  postgres:
    host: localhost
    database: portal
    user: portal
  redis:
    address: localhost:6379
auth:
  keycloak:
    url: http://localhost:8081
`,
			wantErr: "auth.keycloak.url and auth.keycloak.realm are required",
		},
		{
			name:    "unknown storage provider",
			body:    minimalYAML + "storage:\n  provider: ftp\n",
			wantErr: "storage.provider must be s3 or gcs",
		},
		{
			name:    "http relay without url",
			body:    minimalYAML + "notifications:\n  provider: http\n",
			wantErr: "notifications.http.url is required",
		},
		{
			name: "elasticsearch enabled without addresses",
			body: `
database:
  postgres:
    host: localhost
    database: portal
    user: portal
  redis:
    address: localhost:6379
  elasticsearch:
    enabled: true
auth:
  keycloak:
    url: http://localhost:8081
    realm: portal
`,
			wantErr: "database.elasticsearch.addresses is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_URLs(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Database: "portal", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p@ss dbname=portal sslmode=disable", p.GetDSN())
	assert.Equal(t, "postgres://u:p%40ss@db:5432/portal?sslmode=disable", p.GetURL())
}

func TestGetHandlerConfig_Fallback(t *testing.T) {
	cfg := &Config{Handlers: map[string]HandlerConfig{
		"submit-application": {Enabled: false, Timeout: 5000},
	}}

	assert.False(t, IsHandlerEnabled(cfg, "submit-application"))
	assert.True(t, IsHandlerEnabled(cfg, "list-programs"))
	assert.Equal(t, 30000, GetHandlerConfig(cfg, "list-programs").Timeout)
	assert.Equal(t, 5*time.Second, GetDuration(GetHandlerConfig(cfg, "submit-application").Timeout))
}
