package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// AppleConfig holds Apple Sign In verification settings.
type AppleConfig struct {
	// ClientID is the audience the token must be issued for. Defaults to
	// the app bundle identifier when unset.
	ClientID string `mapstructure:"client_id"`
}

// GoogleConfig holds Google Sign-In verification settings. An empty client
// ID disables that audience match.
type GoogleConfig struct {
	WebClientID string `mapstructure:"web_client_id"`
	IOSClientID string `mapstructure:"ios_client_id"`
}

// AuthConfig holds identity provider settings.
type AuthConfig struct {
	Apple       AppleConfig   `mapstructure:"apple"`
	Google      GoogleConfig  `mapstructure:"google"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the AICALORIE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AICALORIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// Auth defaults
	v.SetDefault("auth.apple.client_id", "com.aicalorie.app")
	v.SetDefault("auth.google.web_client_id", "")
	v.SetDefault("auth.google.ios_client_id", "")
	v.SetDefault("auth.http_timeout", "10s")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "AICALORIE_SERVER_PORT",
		"server.read_timeout":        "AICALORIE_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "AICALORIE_SERVER_WRITE_TIMEOUT",
		"server.environment":         "AICALORIE_SERVER_ENVIRONMENT",
		"auth.apple.client_id":       "AICALORIE_AUTH_APPLE_CLIENT_ID",
		"auth.google.web_client_id":  "AICALORIE_AUTH_GOOGLE_WEB_CLIENT_ID",
		"auth.google.ios_client_id":  "AICALORIE_AUTH_GOOGLE_IOS_CLIENT_ID",
		"auth.http_timeout":          "AICALORIE_AUTH_HTTP_TIMEOUT",
		"log.level":                  "AICALORIE_LOG_LEVEL",
		"log.format":                 "AICALORIE_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if AICALORIE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("AICALORIE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Auth = AuthConfig{
		Apple: AppleConfig{
			ClientID: v.GetString("auth.apple.client_id"),
		},
		Google: GoogleConfig{
			WebClientID: v.GetString("auth.google.web_client_id"),
			IOSClientID: v.GetString("auth.google.ios_client_id"),
		},
		HTTPTimeout: v.GetDuration("auth.http_timeout"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, nil
}
