// Package config loads reptrack settings from YAML with REPTRACK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/reptrack/internal/exercise"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Capture  CaptureConfig  `yaml:"capture"`
	Tracking TrackingConfig `yaml:"tracking"`
	Detector DetectorConfig `yaml:"detector"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	WebDir string `yaml:"web_dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CaptureConfig struct {
	CameraID        int           `yaml:"camera_id"`
	Mirror          bool          `yaml:"mirror"`
	Scale           float64       `yaml:"scale"`
	MotionThreshold float64       `yaml:"motion_threshold"`
	MotionHold      time.Duration `yaml:"motion_hold"`
}

type TrackingConfig struct {
	Exercise      string  `yaml:"exercise"`
	MinVisibility float64 `yaml:"min_visibility"`
	Preview       bool    `yaml:"preview"`
}

type DetectorConfig struct {
	Python                 string  `yaml:"python"`
	Script                 string  `yaml:"script"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
	ModelComplexity        int     `yaml:"model_complexity"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := ".reptrack"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".reptrack")
	}

	return &Config{
		DataDir: dataDir,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Capture: CaptureConfig{
			Mirror:     true,
			Scale:      0.5,
			MotionHold: 2 * time.Second,
		},
		Tracking: TrackingConfig{
			Exercise: exercise.Squat.String(),
			Preview:  true,
		},
		Detector: DetectorConfig{
			MinDetectionConfidence: 0.5,
			MinTrackingConfidence:  0.5,
			ModelComplexity:        1,
		},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file leaves the defaults in place.
// Env vars use the prefix REPTRACK_:
//
//	REPTRACK_DATA_DIR, REPTRACK_SERVER_HOST, REPTRACK_SERVER_PORT,
//	REPTRACK_WEB_DIR, REPTRACK_DB_PATH, REPTRACK_LOG_LEVEL,
//	REPTRACK_CAMERA_ID, REPTRACK_EXERCISE, REPTRACK_MIN_VISIBILITY,
//	REPTRACK_PYTHON, REPTRACK_POSE_SCRIPT
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.DataDir, "reptrack.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPTRACK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("REPTRACK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPTRACK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPTRACK_WEB_DIR"); v != "" {
		cfg.Server.WebDir = v
	}
	if v := os.Getenv("REPTRACK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REPTRACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REPTRACK_CAMERA_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.Capture.CameraID = id
		}
	}
	if v := os.Getenv("REPTRACK_EXERCISE"); v != "" {
		cfg.Tracking.Exercise = v
	}
	if v := os.Getenv("REPTRACK_MIN_VISIBILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracking.MinVisibility = f
		}
	}
	if v := os.Getenv("REPTRACK_PYTHON"); v != "" {
		cfg.Detector.Python = v
	}
	if v := os.Getenv("REPTRACK_POSE_SCRIPT"); v != "" {
		cfg.Detector.Script = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Capture.CameraID < 0 {
		return fmt.Errorf("capture.camera_id must not be negative")
	}
	if c.Capture.Scale < 0 || c.Capture.Scale > 1 {
		return fmt.Errorf("capture.scale must be within [0, 1], got %v", c.Capture.Scale)
	}
	if c.Capture.MotionThreshold < 0 {
		return fmt.Errorf("capture.motion_threshold must not be negative")
	}
	if _, err := exercise.ParseKind(c.Tracking.Exercise); err != nil {
		return fmt.Errorf("tracking.exercise: %w", err)
	}
	if c.Tracking.MinVisibility < 0 || c.Tracking.MinVisibility > 1 {
		return fmt.Errorf("tracking.min_visibility must be within [0, 1], got %v", c.Tracking.MinVisibility)
	}
	if c.Detector.MinDetectionConfidence < 0 || c.Detector.MinDetectionConfidence > 1 {
		return fmt.Errorf("detector.min_detection_confidence must be within [0, 1]")
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		return fmt.Errorf("detector.min_tracking_confidence must be within [0, 1]")
	}
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 2 {
		return fmt.Errorf("detector.model_complexity must be 0, 1 or 2")
	}
	return nil
}

// Exercise returns the configured default exercise.
func (c *Config) Exercise() exercise.Kind {
	k, _ := exercise.ParseKind(c.Tracking.Exercise)
	return k
}

// NewLogger builds the application logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
