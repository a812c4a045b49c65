package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend selectors
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// HTTP server
	Port string `mapstructure:"port"`

	// Storage backend: postgres, file or memory
	Storage string `mapstructure:"storage"`

	// Database configuration, required when Storage is postgres
	DatabaseURL string `mapstructure:"database_url"`

	// Path of the JSON document, used when Storage is file
	DataFile string `mapstructure:"data_file"`

	// Remote API base URL for the fallback client, empty disables it
	RemoteURL string `mapstructure:"remote_url"`

	// Seed the store with demo data on first start
	Seed bool `mapstructure:"seed"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Environment: "development", "production" or "test"
	Environment string `mapstructure:"environment"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Load reads configuration from the environment, with a .env file as an
// optional source for local development.
func Load() (*Config, error) {
	// Missing .env is fine; the environment wins either way
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("rr")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", "8080")
	v.SetDefault("storage", StorageFile)
	v.SetDefault("data_file", "royale.json")
	v.SetDefault("seed", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")

	// Bind explicitly so AutomaticEnv sees keys that have no default
	for _, key := range []string{"port", "storage", "database_url", "data_file", "remote_url", "seed", "log_level", "environment"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("RR_DATABASE_URL is required when storage is postgres")
		}
	case StorageFile:
		if c.DataFile == "" {
			return fmt.Errorf("RR_DATA_FILE is required when storage is file")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Port:        "0",
		Storage:     StorageMemory,
		LogLevel:    "error",
		Environment: "test",
	}
}
