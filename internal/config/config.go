// Package config loads the application configuration.
//
// WHERE VALUES COME FROM (highest priority first):
//  1. Command-line flags bound with viper.BindPFlag (see cmd/server)
//  2. Environment variables (PORT, JWT_SECRET, ...)
//  3. An optional config file passed with --config (YAML, TOML, JSON, .env)
//  4. The defaults set in SetDefaults
//
// Viper merges all of these behind one Get call, so the rest of the program
// only ever sees a validated Config struct and never talks to viper itself.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Keys. They double as environment variable names.
const (
	KeyPort              = "PORT"
	KeyAppEnv            = "APP_ENV"
	KeyLogLevel          = "LOG_LEVEL"
	KeyDBDriver          = "DB_DRIVER"
	KeyDatabaseURL       = "DATABASE_URL"
	KeyJWTSecret         = "JWT_SECRET"
	KeyBcryptCost        = "BCRYPT_COST"
	KeySpoonacularAPIKey = "SPOONACULAR_API_KEY"
	KeySpoonacularURL    = "SPOONACULAR_BASE_URL"
	KeyStaticDir         = "STATIC_DIR"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const EnvDevelopment = "development"

// ErrMissingJWTSecret is returned by Load when no signing secret is set.
// The server must not start without one.
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")

// MinJWTSecretLength matches the check auth.NewTokenService makes, so a
// weak secret fails at load time with the key name in the message.
const MinJWTSecretLength = 16

// Config is the fully resolved configuration.
type Config struct {
	Port        int
	AppEnv      string
	LogLevel    string
	DBDriver    string
	DatabaseURL string
	JWTSecret   string
	BcryptCost  int
	StaticDir   string

	SpoonacularAPIKey  string
	SpoonacularBaseURL string
}

// IsDevelopment reports whether internal error details may be shown to
// clients.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyAppEnv, EnvDevelopment)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDBDriver, DriverSQLite)
	v.SetDefault(KeyDatabaseURL, "data/recipes.db")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyBcryptCost, 12)
	v.SetDefault(KeySpoonacularAPIKey, "")
	v.SetDefault(KeySpoonacularURL, "https://api.spoonacular.com")
	v.SetDefault(KeyStaticDir, "public")
}

// New returns a viper instance with defaults and environment lookup wired
// up. If configFile is not empty it is read as well.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load reads every key from v and validates the result.
//
// Only the database settings are needed to run migrations, so the
// migrate command uses LoadDatabase instead and can run without a JWT secret.
func Load(v *viper.Viper) (Config, error) {
	cfg, err := LoadDatabase(v)
	if err != nil {
		return Config{}, err
	}

	cfg.Port = v.GetInt(KeyPort)
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(v.GetString(KeyAppEnv)))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel)))
	cfg.JWTSecret = v.GetString(KeyJWTSecret)
	cfg.BcryptCost = v.GetInt(KeyBcryptCost)
	cfg.StaticDir = v.GetString(KeyStaticDir)
	cfg.SpoonacularAPIKey = strings.TrimSpace(v.GetString(KeySpoonacularAPIKey))
	cfg.SpoonacularBaseURL = strings.TrimRight(v.GetString(KeySpoonacularURL), "/")

	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return Config{}, fmt.Errorf("config: %s must be at least %d characters", KeyJWTSecret, MinJWTSecretLength)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("config: invalid %s %d (want %d-%d)",
			KeyBcryptCost, cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid %s %d", KeyPort, cfg.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("config: invalid %s %q", KeyLogLevel, cfg.LogLevel)
	}

	return cfg, nil
}

// LoadDatabase reads and validates only the database keys.
func LoadDatabase(v *viper.Viper) (Config, error) {
	cfg := Config{
		DBDriver:    strings.ToLower(strings.TrimSpace(v.GetString(KeyDBDriver))),
		DatabaseURL: v.GetString(KeyDatabaseURL),
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("config: unknown %s %q (want %q or %q)",
			KeyDBDriver, cfg.DBDriver, DriverSQLite, DriverPostgres)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: %s is required", KeyDatabaseURL)
	}
	return cfg, nil
}
