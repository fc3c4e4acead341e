package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kasw/orgtrace/internal/store"
)

const (
	maxWalkDepth = 25
)

// Config represents the orgtrace configuration from orgtrace.yaml.
type Config struct {
	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Fuzzy name resolution settings
	Resolver ResolverConfig `mapstructure:"resolver"`

	// Ingest settings
	Ingest IngestConfig `mapstructure:"ingest"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	MinConns int    `mapstructure:"min_conns"`
	MaxConns int    `mapstructure:"max_conns"`
}

// ResolverConfig holds fuzzy name resolution settings.
type ResolverConfig struct {
	TrigramThreshold  float64 `mapstructure:"trigram_threshold"`
	PrimaryThreshold  float64 `mapstructure:"primary_threshold"`
	PairwiseThreshold float64 `mapstructure:"pairwise_threshold"`
	MaxSimilarNames   int     `mapstructure:"max_similar_names"`
	MinStrongLinks    int     `mapstructure:"min_strong_links"`
	DisablePairwise   bool    `mapstructure:"disable_pairwise"`
}

// IngestConfig holds ingest settings.
type IngestConfig struct {
	CohesionThreshold int `mapstructure:"cohesion_threshold"`
	BatchSize         int `mapstructure:"batch_size"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults. A .env file in the working
// directory is loaded into the environment first.
//
// Returns the loaded config, the path to the config file (empty if
// none found), and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	_ = godotenv.Load()

	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("ORGTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "temporal_org")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conns", 10)

	// Resolver defaults
	v.SetDefault("resolver.trigram_threshold", 0.3)
	v.SetDefault("resolver.primary_threshold", 0.3)
	v.SetDefault("resolver.pairwise_threshold", 0.8)
	v.SetDefault("resolver.max_similar_names", 10)
	v.SetDefault("resolver.min_strong_links", 1)
	v.SetDefault("resolver.disable_pairwise", false)

	// Ingest defaults
	v.SetDefault("ingest.cohesion_threshold", 1)
	v.SetDefault("ingest.batch_size", 1000)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for orgtrace.yaml or
// orgtrace.yml, stopping at a .git directory or after maxWalkDepth
// levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Auto-discovery: walk up to .git or maxWalkDepth
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		// Try orgtrace.yaml then orgtrace.yml
		for _, name := range []string{"orgtrace.yaml", "orgtrace.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break // Stop at repo root
		}

		// Move up
		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// StoreConfig maps the database section onto the store configuration.
func (c *Config) StoreConfig() store.Config {
	db := c.Database
	return store.Config{
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Name,
		User:     db.User,
		Password: db.Password,
		SSLMode:  db.SSLMode,
		MinConns: int32(db.MinConns),
		MaxConns: int32(db.MaxConns),
	}
}

// DSN returns the database connection string built from the discrete
// fields.
func (c *Config) DSN() (string, error) {
	if c.Database.Host == "" {
		return "", fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return "", fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return "", fmt.Errorf("database.user is required")
	}
	return c.StoreConfig().DSN(), nil
}
