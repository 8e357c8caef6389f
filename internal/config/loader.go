package config

import (
	"fmt"
	"time"

	"github.com/bychung/snusv-angel-club-sub002/internal/db"
	"github.com/spf13/viper"
)

// Config collects everything the server needs at startup.
type Config struct {
	Server ServerConfig
	DB     db.Config
	Auth   AuthConfig
	Mail   MailConfig
	Export ExportConfig
	Notify NotifyConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type ExportConfig struct {
	SignSecret string
	LinkTTL    time.Duration
}

type NotifyConfig struct {
	CronSpec   string
	WindowDays int
}

// Defaults returns a configuration suitable for local development.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		DB: db.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Mail: MailConfig{
			FromName: "SNUSV Angel Club",
		},
		Export: ExportConfig{
			LinkTTL: 15 * time.Minute,
		},
		Notify: NotifyConfig{
			CronSpec:   "0 9 * * *",
			WindowDays: 7,
		},
	}
}

// Load reads config.yaml from configPath and applies environment overrides.
func Load(configPath string) (Config, error) {
	cfg := Defaults()
	if configPath == "" {
		configPath = "."
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()      // allow environment overrides
	v.SetEnvPrefix("APP") // map env vars like APP_SERVER_PORT

	// Map nested keys to flat env vars
	v.BindEnv("server.port")
	v.BindEnv("server.allowed_origins")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("auth.jwt_secret")
	v.BindEnv("auth.token_ttl")
	v.BindEnv("mail.api_key")
	v.BindEnv("mail.from_email")
	v.BindEnv("mail.from_name")
	v.BindEnv("export.sign_secret")
	v.BindEnv("export.link_ttl")
	v.BindEnv("notify.cron_spec")
	v.BindEnv("notify.window_days")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	}

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("auth.jwt_secret") {
		cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	}
	if v.IsSet("auth.token_ttl") {
		cfg.Auth.TokenTTL = v.GetDuration("auth.token_ttl")
	}

	if v.IsSet("mail.api_key") {
		cfg.Mail.APIKey = v.GetString("mail.api_key")
	}
	if v.IsSet("mail.from_email") {
		cfg.Mail.FromEmail = v.GetString("mail.from_email")
	}
	if v.IsSet("mail.from_name") {
		cfg.Mail.FromName = v.GetString("mail.from_name")
	}

	if v.IsSet("export.sign_secret") {
		cfg.Export.SignSecret = v.GetString("export.sign_secret")
	}
	if v.IsSet("export.link_ttl") {
		cfg.Export.LinkTTL = v.GetDuration("export.link_ttl")
	}

	if v.IsSet("notify.cron_spec") {
		cfg.Notify.CronSpec = v.GetString("notify.cron_spec")
	}
	if v.IsSet("notify.window_days") {
		cfg.Notify.WindowDays = v.GetInt("notify.window_days")
	}

	if cfg.Auth.JWTSecret == "" {
		return cfg, fmt.Errorf("auth.jwt_secret is required")
	}

	return cfg, nil
}
