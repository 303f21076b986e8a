package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/solarmap/citygrid/internal/pkg/raster"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Grid      GridConfig      `mapstructure:"grid"`
	Data      DataConfig      `mapstructure:"data"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
	TTL     int    `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// MetricsConfig points batch runs at a Pushgateway; empty disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// GridConfig controls the simplify/project/rasterize pipeline.
type GridConfig struct {
	Zoom             int     `mapstructure:"zoom"`
	Tolerance        float64 `mapstructure:"tolerance"`
	BufferDistance   float64 `mapstructure:"buffer_distance"`
	QuadrantSegments int     `mapstructure:"quadrant_segments"`
	Rasterizer       string  `mapstructure:"rasterizer"`
	SkipSimplify     bool    `mapstructure:"skip_simplify"`
}

type DataConfig struct {
	CitiesCSV  string `mapstructure:"cities_csv"`
	GeoJSONDir string `mapstructure:"geojson_dir"`
	OutputDir  string `mapstructure:"output_dir"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"zoom":          "grid.zoom",
	"tolerance":     "grid.tolerance",
	"buffer":        "grid.buffer_distance",
	"rasterizer":    "grid.rasterizer",
	"skip-simplify": "grid.skip_simplify",
	"cities":        "data.cities_csv",
	"geojson-dir":   "data.geojson_dir",
	"output-dir":    "data.output_dir",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"port":          "server.port",
}

// Load reads configuration from defaults, an optional config file, a .env
// file, environment variables and finally flags (highest precedence).
// flags may be nil.
func Load(service string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "citygrid")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "citygrid")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.ttl", 300)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("grid.zoom", 21)
	v.SetDefault("grid.tolerance", 0.001)
	v.SetDefault("grid.buffer_distance", 0.004)
	v.SetDefault("grid.quadrant_segments", 16)
	v.SetDefault("grid.rasterizer", raster.StrategyScanline)
	v.SetDefault("grid.skip_simplify", false)
	v.SetDefault("data.cities_csv", "cities.csv")
	v.SetDefault("data.geojson_dir", "geojson")
	v.SetDefault("data.output_dir", "out")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CITYGRID_GRID_ZOOM → grid.zoom
	v.SetEnvPrefix("CITYGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.TTL <= 0 {
		errs = append(errs, fmt.Sprintf("valkey.ttl must be positive when valkey is enabled, got %d", c.Valkey.TTL))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if err := slippy.ValidateZoom(c.Grid.Zoom); err != nil {
		errs = append(errs, fmt.Sprintf("grid.zoom must be 0-%d, got %d", slippy.MaxZoom, c.Grid.Zoom))
	}
	if c.Grid.Tolerance < 0 {
		errs = append(errs, "grid.tolerance must not be negative")
	}
	if c.Grid.BufferDistance < 0 {
		errs = append(errs, "grid.buffer_distance must not be negative")
	}
	if c.Grid.QuadrantSegments <= 0 {
		errs = append(errs, "grid.quadrant_segments must be positive")
	}
	if _, err := raster.New(c.Grid.Rasterizer); err != nil {
		errs = append(errs, fmt.Sprintf("grid.rasterizer: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
