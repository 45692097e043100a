package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/ayusman/gesturecast/internal/gesture"
)

type Config struct {
	Host      string `env:"GESTURECAST_HOST" default:"0.0.0.0"`
	Port      int    `env:"GESTURECAST_PORT" default:"8080"`
	LogLevel  string `env:"GESTURECAST_LOG_LEVEL" default:"info"`
	LogFormat string `env:"GESTURECAST_LOG_FORMAT" default:"text"`

	// DataDir defaults to ~/.gesturecast and PluginDir to DataDir/plugins.
	DataDir     string `env:"GESTURECAST_DATA_DIR"`
	StaticDir   string `env:"GESTURECAST_STATIC_DIR"`
	PluginDir   string `env:"GESTURECAST_PLUGIN_DIR"`
	PluginWatch bool   `env:"GESTURECAST_PLUGIN_WATCH" default:"true"`

	CameraID        int     `env:"GESTURECAST_CAMERA_ID" default:"0"`
	MotionThreshold float64 `env:"GESTURECAST_MOTION_THRESHOLD" default:"0.01"`
	MaxHands        int     `env:"GESTURECAST_MAX_HANDS" default:"2"`
	MinDetectConf   float64 `env:"GESTURECAST_MIN_DETECTION_CONFIDENCE" default:"0.8"`
	MinTrackConf    float64 `env:"GESTURECAST_MIN_TRACKING_CONFIDENCE" default:"0.8"`

	PinchThreshold    float64 `env:"GESTURECAST_PINCH_THRESHOLD" default:"40"`
	MinPanPixels      int     `env:"GESTURECAST_MIN_PAN_PIXELS" default:"20"`
	MinZoomPixels     int     `env:"GESTURECAST_MIN_ZOOM_PIXELS" default:"20"`
	MinRotationPixels int     `env:"GESTURECAST_MIN_ROTATION_PIXELS" default:"20"`

	PollInterval time.Duration `env:"GESTURECAST_POLL_INTERVAL" default:"10ms"`
	SendTimeout  time.Duration `env:"GESTURECAST_SEND_TIMEOUT" default:"1s"`
	PingInterval time.Duration `env:"GESTURECAST_PING_INTERVAL" default:"30s"`

	MaxSubscribers      int     `env:"GESTURECAST_MAX_SUBSCRIBERS" default:"64"`
	MaxSubscribersPerIP int     `env:"GESTURECAST_MAX_SUBSCRIBERS_PER_IP" default:"16"`
	ConnectRate         float64 `env:"GESTURECAST_CONNECT_RATE" default:"5"` // per second per IP
	ConnectBurst        int     `env:"GESTURECAST_CONNECT_BURST" default:"10"`

	MDNSEnabled bool `env:"GESTURECAST_MDNS_ENABLED" default:"true"`
	TrayEnabled bool `env:"GESTURECAST_TRAY_ENABLED" default:"false"`
}

// Load reads an optional .env file and the process environment, fills in
// path defaults and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".gesturecast")
	}
	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabasePath returns the sqlite file under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "gesturecast.db")
}

// Thresholds returns the recognizer tuning from the environment.
func (c *Config) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{
		Pinch:       c.PinchThreshold,
		MinPan:      c.MinPanPixels,
		MinZoom:     c.MinZoomPixels,
		MinRotation: c.MinRotationPixels,
	}
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("GESTURECAST_PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("GESTURECAST_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.MaxHands < 1 {
		return errors.New("GESTURECAST_MAX_HANDS must be at least 1")
	}
	for name, v := range map[string]float64{
		"GESTURECAST_MIN_DETECTION_CONFIDENCE": cfg.MinDetectConf,
		"GESTURECAST_MIN_TRACKING_CONFIDENCE":  cfg.MinTrackConf,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}

	for name, v := range map[string]int{
		"GESTURECAST_MAX_SUBSCRIBERS":        cfg.MaxSubscribers,
		"GESTURECAST_MAX_SUBSCRIBERS_PER_IP": cfg.MaxSubscribersPerIP,
		"GESTURECAST_CONNECT_BURST":          cfg.ConnectBurst,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	if cfg.ConnectRate < 0 {
		return fmt.Errorf("GESTURECAST_CONNECT_RATE must not be negative, got %v", cfg.ConnectRate)
	}

	if err := cfg.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid gesture thresholds: %w", err)
	}

	for name, d := range map[string]time.Duration{
		"GESTURECAST_POLL_INTERVAL": cfg.PollInterval,
		"GESTURECAST_SEND_TIMEOUT":  cfg.SendTimeout,
		"GESTURECAST_PING_INTERVAL": cfg.PingInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	return nil
}
