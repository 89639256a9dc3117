// Package config provides application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	LogLevel    string
	CORSOrigins []string

	DB DBConfig

	MetricsWriteInterval time.Duration

	Association AssociationConfig
	Tracker     TrackerConfig

	HistoryRecentSamples int

	Landmark LandmarkConfig

	ExpressionProfile string

	FrameQueue       int
	SubscriberBuffer int

	// StaticDir holds a built dashboard to serve at /. Empty disables it.
	StaticDir string
}

// DBConfig selects the storage backend.
type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string
	URL    string
}

// AssociationConfig tunes how tracks are re-linked to detections.
type AssociationConfig struct {
	MaxDistance  float64
	MaxStaleness int
}

// TrackerConfig tunes the built-in IoU tracker.
type TrackerConfig struct {
	NInit  int
	MaxAge int
	MinIoU float64
}

// LandmarkConfig controls the landmark sidecar process.
type LandmarkConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

var defaults = map[string]any{
	"port":                     "8080",
	"frontend_url":             "",
	"log_level":                "info",
	"cors_origins":             "*",
	"db_driver":                "sqlite",
	"db_path":                  "./data/classpulse.db",
	"database_url":             "",
	"metrics_write_interval":   "2s",
	"association_max_distance": 50.0,
	"track_max_staleness":      1,
	"tracker_n_init":           3,
	"tracker_max_age":          60,
	"tracker_min_iou":          0.3,
	"history_recent_samples":   300,
	"landmark_command":         "",
	"landmark_args":            "",
	"landmark_timeout":         "2s",
	"expression_profile":       "",
	"frame_queue":              1,
	"subscriber_buffer":        8,
	"static_dir":               "",
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		FrontendURL: v.GetString("frontend_url"),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("db_driver")),
			Path:   v.GetString("db_path"),
			URL:    v.GetString("database_url"),
		},
		MetricsWriteInterval: v.GetDuration("metrics_write_interval"),
		Association: AssociationConfig{
			MaxDistance:  v.GetFloat64("association_max_distance"),
			MaxStaleness: v.GetInt("track_max_staleness"),
		},
		Tracker: TrackerConfig{
			NInit:  v.GetInt("tracker_n_init"),
			MaxAge: v.GetInt("tracker_max_age"),
			MinIoU: v.GetFloat64("tracker_min_iou"),
		},
		HistoryRecentSamples: v.GetInt("history_recent_samples"),
		Landmark: LandmarkConfig{
			Command: v.GetString("landmark_command"),
			Args:    strings.Fields(v.GetString("landmark_args")),
			Timeout: v.GetDuration("landmark_timeout"),
		},
		ExpressionProfile: v.GetString("expression_profile"),
		FrameQueue:        v.GetInt("frame_queue"),
		SubscriberBuffer:  v.GetInt("subscriber_buffer"),
		StaticDir:         v.GetString("static_dir"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DB.Driver)
	}
	if c.MetricsWriteInterval <= 0 {
		return fmt.Errorf("METRICS_WRITE_INTERVAL must be > 0")
	}
	if c.Association.MaxDistance <= 0 {
		return fmt.Errorf("ASSOCIATION_MAX_DISTANCE must be > 0")
	}
	if c.Association.MaxStaleness < 0 {
		return fmt.Errorf("TRACK_MAX_STALENESS must be >= 0")
	}
	if c.Tracker.NInit <= 0 || c.Tracker.MaxAge <= 0 {
		return fmt.Errorf("TRACKER_N_INIT and TRACKER_MAX_AGE must be > 0")
	}
	if c.Tracker.MinIoU <= 0 || c.Tracker.MinIoU > 1 {
		return fmt.Errorf("TRACKER_MIN_IOU must be in (0,1]")
	}
	if c.HistoryRecentSamples <= 0 {
		return fmt.Errorf("HISTORY_RECENT_SAMPLES must be > 0")
	}
	if c.Landmark.Timeout <= 0 {
		return fmt.Errorf("LANDMARK_TIMEOUT must be > 0")
	}
	if c.FrameQueue <= 0 || c.SubscriberBuffer <= 0 {
		return fmt.Errorf("FRAME_QUEUE and SUBSCRIBER_BUFFER must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not supported", c.LogLevel)
	}
	return nil
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}
