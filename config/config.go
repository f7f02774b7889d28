package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/logging"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Fleet    FleetConfig    `yaml:"fleet"`
	Scoring  ScoringConfig  `yaml:"scoring"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" validate:"min=1,max=65535"`
	RequestIPHeader string   `yaml:"request_ip_header"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" validate:"gte=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" validate:"gte=0"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" validate:"gte=0"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int    `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" validate:"gte=0"`
	EnableConstraints      bool   `yaml:"enable_constraints"`
	LogLevel               string `yaml:"log_level" validate:"oneof=silent error warn info"`
}

// FleetConfig holds the upstream fleet feed configuration.
type FleetConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string        `yaml:"http_proxy" validate:"omitempty,url"`
	Timezone        string        `yaml:"timezone"`
	TimestampLayout string        `yaml:"timestamp_layout"`
	DefaultStatus   string        `yaml:"default_status"`
	Request         FleetRequest  `yaml:"request"`
}

// FleetRequest defines the HTTP request for the fleet feed.
type FleetRequest struct {
	URL      string            `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"page_size"`
	Payload  map[string]any    `yaml:"payload"`
	// Enabled mirrors FleetConfig.Enabled for validation.
	Enabled bool `yaml:"-"`
}

// ScoringConfig holds recommendation settings. Organizations maps an organization id
// to a partial weights document applied on top of Weights.
type ScoringConfig struct {
	DefaultLimit          int                  `yaml:"default_limit" validate:"gte=0"`
	Parallelism           int                  `yaml:"parallelism" validate:"gte=0"`
	FallbackDistanceMiles float64              `yaml:"fallback_distance_miles" validate:"gte=0"`
	Weights               dispatch.Weights     `yaml:"weights"`
	Organizations         map[string]yaml.Node `yaml:"organizations" validate:"-"`

	overrides map[uuid.UUID]dispatch.Weights
}

// WeightsFor returns the weights for an organization, falling back to the defaults.
func (s *ScoringConfig) WeightsFor(org uuid.UUID) dispatch.Weights {
	if w, ok := s.overrides[org]; ok {
		return w
	}
	return s.Weights
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Presets survive keys absent from the file; explicit values, including zero, win.
	cfg := Config{Scoring: ScoringConfig{DefaultLimit: 3, Weights: dispatch.DefaultWeights()}}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Scoring.resolveOverrides(); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Fleet.IntervalSeconds <= 0 {
		cfg.Fleet.IntervalSeconds = 60
	}
	cfg.Fleet.Interval = time.Duration(cfg.Fleet.IntervalSeconds) * time.Second
	if cfg.Fleet.Request.PageSize <= 0 {
		cfg.Fleet.Request.PageSize = 100
	}
	if cfg.Fleet.Timezone == "" {
		cfg.Fleet.Timezone = "UTC"
	}
	if cfg.Fleet.TimestampLayout == "" {
		cfg.Fleet.TimestampLayout = time.RFC3339
	}
	if cfg.Fleet.DefaultStatus == "" {
		cfg.Fleet.DefaultStatus = string(dispatch.UnitOffDuty)
	}
	cfg.Fleet.Request.Enabled = cfg.Fleet.Enabled

	if cfg.Scoring.FallbackDistanceMiles <= 0 {
		logging.Logger.Debugf("scoring.fallback_distance_miles is not set; defaulting to %.0f", dispatch.DefaultFallbackMiles)
		cfg.Scoring.FallbackDistanceMiles = dispatch.DefaultFallbackMiles
	}
}

func (s *ScoringConfig) resolveOverrides() error {
	s.overrides = make(map[uuid.UUID]dispatch.Weights, len(s.Organizations))
	for key, node := range s.Organizations {
		org, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("scoring.organizations: invalid organization id %q: %w", key, err)
		}
		w := s.Weights
		if err := node.Decode(&w); err != nil {
			return fmt.Errorf("scoring.organizations.%s: %w", key, err)
		}
		s.overrides[org] = w
	}
	return nil
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterStructValidation(validateWeights, dispatch.Weights{})

	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Fleet.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: fleet.timezone: %w", err)
	}
	if !dispatch.UnitStatus(cfg.Fleet.DefaultStatus).Valid() {
		return fmt.Errorf("invalid configuration: fleet.default_status %q is not a unit status", cfg.Fleet.DefaultStatus)
	}
	for org, w := range cfg.Scoring.overrides {
		if err := v.Struct(w); err != nil {
			return fmt.Errorf("invalid configuration: scoring.organizations.%s: %w", org, err)
		}
	}
	return nil
}

func validateWeights(sl validator.StructLevel) {
	w := sl.Current().Interface().(dispatch.Weights)
	if w.OptimalDistanceMiles < 0 {
		sl.ReportError(w.OptimalDistanceMiles, "OptimalDistanceMiles", "optimal_distance_miles", "gte", "0")
	}
	if w.MaxDistanceMiles <= w.OptimalDistanceMiles {
		sl.ReportError(w.MaxDistanceMiles, "MaxDistanceMiles", "max_distance_miles", "gtfield", "OptimalDistanceMiles")
	}
	if w.OnTime < 0 {
		sl.ReportError(w.OnTime, "OnTime", "on_time", "gte", "0")
	}
	if w.Compliance < 0 {
		sl.ReportError(w.Compliance, "Compliance", "compliance", "gte", "0")
	}
}
