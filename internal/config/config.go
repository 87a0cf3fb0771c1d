// Package config provides configuration management for placesim.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/limiquantix/placesim/internal/consolidation"
	"github.com/limiquantix/placesim/internal/experiment"
	"github.com/limiquantix/placesim/internal/workload"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Logging       LoggingConfig        `mapstructure:"logging"`
	Metrics       MetricsConfig        `mapstructure:"metrics"`
	Workload      workload.Config      `mapstructure:"workload"`
	Consolidation consolidation.Config `mapstructure:"consolidation"`
	Experiments   []experiment.Spec    `mapstructure:"experiments"`
	Limits        experiment.Limits    `mapstructure:"limits"`
	Storage       StorageConfig        `mapstructure:"storage"`
	Database      DatabaseConfig       `mapstructure:"database"`
	Redis         RedisConfig          `mapstructure:"redis"`
	Server        ServerConfig         `mapstructure:"server"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the metrics scope configuration.
type MetricsConfig struct {
	Prefix         string        `mapstructure:"prefix"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// StorageConfig selects where experiment runs are stored.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Address returns the server address string.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the PostgreSQL connection URL.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Address returns the Redis address string.
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLACESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Experiments) == 0 {
		cfg.Experiments = experiment.DefaultSpecs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the sections that have their own rules.
func (c *Config) Validate() error {
	if err := c.Workload.Validate(); err != nil {
		return fmt.Errorf("invalid workload config: %w", err)
	}
	if err := c.Consolidation.Validate(); err != nil {
		return fmt.Errorf("invalid consolidation config: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("invalid limits config: %w", err)
	}
	switch c.Storage.Backend {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Metrics
	v.SetDefault("metrics.prefix", "placesim")
	v.SetDefault("metrics.report_interval", "1s")

	// Workload
	wl := workload.DefaultConfig()
	v.SetDefault("workload.host_memory", wl.HostMemory)
	v.SetDefault("workload.host_compute", wl.HostCompute)
	v.SetDefault("workload.hosts_per_rack", wl.HostsPerRack)
	v.SetDefault("workload.racks_per_pod", wl.RacksPerPod)
	v.SetDefault("workload.vm_memory_min", wl.VMMemoryMin)
	v.SetDefault("workload.vm_memory_spread", wl.VMMemorySpread)
	v.SetDefault("workload.vm_compute_min", wl.VMComputeMin)
	v.SetDefault("workload.vm_compute_spread", wl.VMComputeSpread)
	v.SetDefault("workload.vm_seed", wl.VMSeed)
	v.SetDefault("workload.traffic_seed", wl.TrafficSeed)
	v.SetDefault("workload.traffic_model", wl.TrafficModel)
	v.SetDefault("workload.cluster_groups", wl.ClusterGroups)

	// Consolidation
	cc := consolidation.DefaultConfig()
	v.SetDefault("consolidation.supernode_percentile", cc.SupernodePercentile)
	v.SetDefault("consolidation.max_release_attempts", cc.MaxReleaseAttempts)
	v.SetDefault("consolidation.initial_partitions", cc.InitialPartitions)

	// Limits
	limits := experiment.DefaultLimits()
	v.SetDefault("limits.max_hosts", limits.MaxHosts)
	v.SetDefault("limits.max_vms", limits.MaxVMs)
	v.SetDefault("limits.max_points", limits.MaxPoints)

	// Storage
	v.SetDefault("storage.backend", StorageMemory)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "placesim")
	v.SetDefault("database.user", "placesim")
	v.SetDefault("database.password", "placesim")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})
}
