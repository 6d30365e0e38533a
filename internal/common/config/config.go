// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Server        ServerConfig             `mapstructure:"server"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Handlers      map[string]HandlerConfig `mapstructure:"handlers"`
	Auth          AuthConfig               `mapstructure:"auth"`
	Storage       StorageConfig            `mapstructure:"storage"`
	APIs          APIsConfig               `mapstructure:"apis"`
	Wizard        WizardConfig             `mapstructure:"wizard"`
	Logging       LoggingConfig            `mapstructure:"logging"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      struct {
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		Burst             int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the connection string in URL form, as expected by the migration driver.
func (p PostgresConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

type ElasticsearchConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	ProgramsIndex string   `mapstructure:"programs_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HandlerConfig holds the core settings applicable to every HTTP operation.
type HandlerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries int  `mapstructure:"max_retries"` // For outbound calls that support it
}

// --- Specific Configuration Sections ---

// AuthConfig holds identity provider and session settings.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`

	Session struct {
		CookieName string `mapstructure:"cookie_name"`
		TTL        int    `mapstructure:"ttl"` // seconds
		Secure     bool   `mapstructure:"secure"`
	} `mapstructure:"session"`

	// Email that receives the admin role when it signs up.
	BootstrapAdminEmail string `mapstructure:"bootstrap_admin_email"`
}

// StorageConfig selects the object storage backend for uploaded documents.
type StorageConfig struct {
	Provider string `mapstructure:"provider"` // s3 | gcs
	Bucket   string `mapstructure:"bucket"`
	S3       struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"s3"`
	GCS struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"gcs"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		APIKey      string `mapstructure:"api_key"`
		Model       string `mapstructure:"model"`
		VisionModel string `mapstructure:"vision_model"`
		Timeout     int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`
}

// WizardConfig holds application-form draft and submission settings.
type WizardConfig struct {
	DraftTTL       int   `mapstructure:"draft_ttl"`        // seconds
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"` // per document
	SubmitLockTTL  int   `mapstructure:"submit_lock_ttl"`  // seconds
}

// NotificationConfig holds settings for the outbound email relay and SMS.
type NotificationConfig struct {
	Provider string `mapstructure:"provider"` // ses | http
	From     string `mapstructure:"from"`
	HTTP     struct {
		URL     string `mapstructure:"url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"http"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	StatusEmails bool `mapstructure:"status_emails"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
