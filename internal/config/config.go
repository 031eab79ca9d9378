package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// Translation providers
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderOpenAI         = "openai"
	ProviderNone           = "none"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Translation TranslationConfig `mapstructure:"translation"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// TranslationConfig selects and configures the translation provider
type TranslationConfig struct {
	Provider string        `mapstructure:"provider"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig lists the static bearer tokens accepted by the API
type AuthConfig struct {
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig binds a bearer token to a user identity
type TokenConfig struct {
	Token          string `mapstructure:"token"`
	UserID         int64  `mapstructure:"user_id"`
	EmployeeNumber string `mapstructure:"employee_number"`
	FullName       string `mapstructure:"full_name"`
	Role           string `mapstructure:"role"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// SeedConfig lists catalog items ensured at startup, keyed by catalog name
type SeedConfig struct {
	Catalogs map[string][]CatalogItem `mapstructure:"catalogs"`
}

// CatalogItem is a single lookup table entry
type CatalogItem struct {
	Number string `mapstructure:"number"`
	Name   string `mapstructure:"name"`
}

// Load reads configuration from an optional .env file, the YAML file at
// configPath and the environment. An empty configPath uses defaults and
// environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.path", "data/dmt.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("translation.provider", ProviderNone)
	v.SetDefault("translation.url", "")
	v.SetDefault("translation.model", "")
	v.SetDefault("translation.timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("DMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials commonly provided without the prefix
	v.BindEnv("translation.api_key", "DMT_TRANSLATION_API_KEY", "LIBRETRANSLATE_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("database.path", "DMT_DATABASE_PATH", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Translation.Provider {
	case ProviderLibreTranslate:
		if c.Translation.URL == "" {
			return fmt.Errorf("translation.url is required for provider %s", c.Translation.Provider)
		}
	case ProviderOpenAI:
		if c.Translation.APIKey == "" {
			return fmt.Errorf("translation.api_key is required for provider %s", c.Translation.Provider)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("translation.provider %q is not supported", c.Translation.Provider)
	}
	if c.Translation.Timeout <= 0 {
		return fmt.Errorf("translation.timeout must be positive")
	}

	seen := make(map[string]bool, len(c.Auth.Tokens))
	users := make(map[int64]string, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		if t.Token == "" {
			return fmt.Errorf("auth.tokens[%d].token is required", i)
		}
		if seen[t.Token] {
			return fmt.Errorf("auth.tokens[%d].token is duplicated", i)
		}
		seen[t.Token] = true
		if t.UserID <= 0 {
			return fmt.Errorf("auth.tokens[%d].user_id must be positive", i)
		}
		if _, err := entity.ParseRole(t.Role); err != nil {
			return fmt.Errorf("auth.tokens[%d]: %w", i, err)
		}
		if prev, ok := users[t.UserID]; ok && prev != t.Role {
			return fmt.Errorf("auth.tokens[%d]: user %d already has role %s", i, t.UserID, prev)
		}
		users[t.UserID] = t.Role
	}

	for name, items := range c.Seed.Catalogs {
		if !entity.Catalog(name).IsValid() {
			return fmt.Errorf("seed.catalogs: unknown catalog %q", name)
		}
		for i, item := range items {
			if item.Number == "" || item.Name == "" {
				return fmt.Errorf("seed.catalogs.%s[%d]: number and name are required", name, i)
			}
		}
	}

	return nil
}
