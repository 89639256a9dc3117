package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "./data/classpulse.db", cfg.DB.Path)
	assert.Equal(t, 2*time.Second, cfg.MetricsWriteInterval)
	assert.InDelta(t, 50.0, cfg.Association.MaxDistance, 1e-9)
	assert.Equal(t, 1, cfg.Association.MaxStaleness)
	assert.Equal(t, TrackerConfig{NInit: 3, MaxAge: 60, MinIoU: 0.3}, cfg.Tracker)
	assert.Equal(t, 300, cfg.HistoryRecentSamples)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.Landmark.Timeout)
	assert.Empty(t, cfg.Landmark.Args)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("METRICS_WRITE_INTERVAL", "500ms")
	t.Setenv("ASSOCIATION_MAX_DISTANCE", "75")
	t.Setenv("LANDMARK_COMMAND", "python3")
	t.Setenv("LANDMARK_ARGS", "-u worker.py")
	t.Setenv("FRONTEND_URL", "https://class.example.com")
	t.Setenv("CORS_ORIGINS", "https://class.example.com, http://localhost:5173,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.MetricsWriteInterval)
	assert.InDelta(t, 75.0, cfg.Association.MaxDistance, 1e-9)
	assert.Equal(t, []string{"https://class.example.com", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "python3", cfg.Landmark.Command)
	assert.Equal(t, []string{"-u", "worker.py"}, cfg.Landmark.Args)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nhistory_recent_samples: 50\n"), 0o600))

	t.Setenv("HISTORY_RECENT_SAMPLES", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 60, cfg.HistoryRecentSamples, "environment wins over file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                 "8080",
			LogLevel:             "info",
			DB:                   DBConfig{Driver: "sqlite", Path: "x.db"},
			MetricsWriteInterval: time.Second,
			Association:          AssociationConfig{MaxDistance: 50, MaxStaleness: 1},
			Tracker:              TrackerConfig{NInit: 3, MaxAge: 60, MinIoU: 0.3},
			HistoryRecentSamples: 10,
			Landmark:             LandmarkConfig{Timeout: time.Second},
			FrameQueue:           1,
			SubscriberBuffer:     1,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "DB_DRIVER"},
		{"postgres without url", func(c *Config) { c.DB.Driver = "postgres" }, "DATABASE_URL"},
		{"zero interval", func(c *Config) { c.MetricsWriteInterval = 0 }, "METRICS_WRITE_INTERVAL"},
		{"zero distance", func(c *Config) { c.Association.MaxDistance = 0 }, "ASSOCIATION_MAX_DISTANCE"},
		{"bad iou", func(c *Config) { c.Tracker.MinIoU = 1.5 }, "TRACKER_MIN_IOU"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}
