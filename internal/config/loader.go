package config

import (
	"github.com/spf13/viper"

	"github.com/evchart/evchart/internal/db"
)

// Config is the full runtime configuration for the ingestion service.
type Config struct {
	Database       db.Config
	ListenAddr     string
	AllowedOrigin  string
	MigrationsPath string
}

// Defaults returns the configuration used when no config file or environment
// overrides are present.
func Defaults() Config {
	return Config{
		Database:       db.DefaultConfig(),
		ListenAddr:     ":8080",
		AllowedOrigin:  "http://localhost:3000",
		MigrationsPath: "./migrations",
	}
}

// Load reads config.yaml from the given path, with environment overrides
// (EVCHART_DATABASE_HOST and friends). A missing file is not an error; the
// defaults plus environment apply.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("EVCHART")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.listen_addr")
	v.BindEnv("server.allowed_origin")
	v.BindEnv("server.migrations_path")

	_ = v.ReadInConfig() // missing config.yaml is fine

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.listen_addr") {
		cfg.ListenAddr = v.GetString("server.listen_addr")
	}
	if v.IsSet("server.allowed_origin") {
		cfg.AllowedOrigin = v.GetString("server.allowed_origin")
	}
	if v.IsSet("server.migrations_path") {
		cfg.MigrationsPath = v.GetString("server.migrations_path")
	}

	return cfg, nil
}
