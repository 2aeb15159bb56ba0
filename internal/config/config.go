package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Driver          string
		DSN             string
		Host            string
		Port            int
		User            string
		Password        string
		Name            string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		AutoMigrate     bool
	}
	Server struct {
		Port            int
		Host            string
		ShutdownTimeout time.Duration
	}
	Auth struct {
		JWTSecret       string
		TokenExpiration int
	}
	Log struct {
		Level  string
		Format string
	}
	Tools struct {
		// BinDir holds pg_dump and psql; empty means resolve through PATH.
		BinDir         string
		DumpTimeout    time.Duration
		RestoreTimeout time.Duration
	}
	Seed struct {
		AdminEmail    string
		AdminPassword string
	}
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SQLitePath returns the database file for the sqlite driver.
func (c *Config) SQLitePath() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return "gqpanel.db"
}

// PostgresDSN builds a DSN from the discrete connection settings when none is
// given explicitly.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Name, c.Database.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.shutdowntimeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "greenquality")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 30*time.Minute)
	v.SetDefault("database.automigrate", true)

	v.SetDefault("auth.tokenexpiration", 3600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tools.dumptimeout", 120*time.Second)
	v.SetDefault("tools.restoretimeout", 300*time.Second)

	v.SetDefault("seed.adminemail", "admin@greenquality.local")
}

// LoadConfig reads .env, config.yaml and GQPANEL_* variables, in increasing
// order of precedence.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GQPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	// AutomaticEnv only answers Get calls for known keys; bind the ones
	// without defaults so Unmarshal sees them.
	for _, key := range []string{"auth.jwtsecret", "database.dsn", "database.password", "tools.bindir", "seed.adminpassword"} {
		_ = v.BindEnv(key)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}
	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtsecret must be set (GQPANEL_AUTH_JWTSECRET)")
	}

	return &config, nil
}
