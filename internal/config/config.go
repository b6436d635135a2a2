package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "ANISENSEI"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabaseDriver = DriverSQLite
	defaultDatabaseDSN    = "anisensei.db"
	defaultLogLevel       = "info"
	defaultUploadMaxBytes = 5 << 20
	defaultAIModel        = "gemini-2.5-flash"
	defaultAIBaseURL      = "https://generativelanguage.googleapis.com/"
	defaultAITimeoutSecs  = 60
	defaultAppVersion     = "1.0.0"
	defaultAllowedOrigins = "*"
	DriverSQLite          = "sqlite"
	DriverPostgres        = "postgres"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabaseDriver string
	DatabaseDSN    string
	LogLevel       string
	UploadMaxBytes int64
	AIAPIKey       string
	AIModel        string
	AIBaseURL      string
	AITimeout      time.Duration
	AppVersion     string
	AllowedOrigins []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("upload.max_bytes", defaultUploadMaxBytes)
	configViper.SetDefault("ai.api_key", "")
	configViper.SetDefault("ai.model", defaultAIModel)
	configViper.SetDefault("ai.base_url", defaultAIBaseURL)
	configViper.SetDefault("ai.timeout_seconds", defaultAITimeoutSecs)
	configViper.SetDefault("app.version", defaultAppVersion)
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabaseDSN:    configViper.GetString("database.dsn"),
		LogLevel:       configViper.GetString("log.level"),
		UploadMaxBytes: configViper.GetInt64("upload.max_bytes"),
		AIAPIKey:       strings.TrimSpace(configViper.GetString("ai.api_key")),
		AIModel:        configViper.GetString("ai.model"),
		AIBaseURL:      configViper.GetString("ai.base_url"),
		AITimeout:      time.Duration(configViper.GetInt("ai.timeout_seconds")) * time.Second,
		AppVersion:     configViper.GetString("app.version"),
		AllowedOrigins: splitOrigins(configViper.GetString("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres {
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("ai.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.AIModel) == "" {
		return fmt.Errorf("ai.model is required")
	}
	return nil
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0, 1)
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins)
	}
	return origins
}
