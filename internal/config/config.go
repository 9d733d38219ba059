package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
)

// Config is the storefront's runtime configuration. The shared keys
// (port, DATABASE_URL, JWT secrets, brokers, log level) come from pkg/config.
type Config struct {
	config.Config

	Env         string
	DBDriver    string
	LockTimeout time.Duration

	Search search.Config

	AdminUsername string
	AdminPassword string

	CSRFEnabled  bool
	CookieSecure bool

	ShutdownTimeout time.Duration
}

// Load reads envFile when it exists, then the process env.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	env := config.EnvDefault("ENV", "dev")
	cfg := &Config{
		Config:      config.Load(),
		Env:         env,
		DBDriver:    config.EnvDefault("DB_DRIVER", db.DriverPostgres),
		LockTimeout: config.EnvDurationDefault("DB_LOCK_TIMEOUT", 5*time.Second),
		Search: search.Config{
			URL:      os.Getenv("ES_URL"),
			Username: os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    config.EnvDefault("ES_INDEX", search.DefaultIndex),
		},
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		CSRFEnabled:     config.EnvBoolDefault("CSRF_ENABLED", env != "dev"),
		CookieSecure:    config.EnvBoolDefault("COOKIE_SECURE", env != "dev"),
		ShutdownTimeout: config.EnvDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := config.RequireNonEmpty(map[string]string{
		"DATABASE_URL":       c.DatabaseURL,
		"JWT_SECRET":         string(c.JWTAccessSecret),
		"JWT_REFRESH_SECRET": string(c.JWTRefreshSecret),
	}); err != nil {
		return err
	}
	switch c.DBDriver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.LockTimeout <= 0 {
		return errors.New("DB_LOCK_TIMEOUT must be positive")
	}
	return nil
}
