package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const defaultConfigPath = "~/.config/pixelmorph/config.json"

// Config holds user-editable settings for the morph pipeline.
type Config struct {
	Processing Processing `json:"processing"`
	Logging    Logging    `json:"logging"`
	Paths      Paths      `json:"paths"`
	Limits     Limits     `json:"limits"`
	Render     Render     `json:"render"`
	Server     Server     `json:"server"`
}

// Processing captures execution preferences.
type Processing struct {
	ParallelJobs int    `json:"parallel_jobs"`
	TempDir      string `json:"temp_dir"`
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // text, json
	FileOutput bool   `json:"file_output"` // Enable file logging
	LogDir     string `json:"log_dir"`     // Directory for log files
}

// Paths configures default input/output locations.
type Paths struct {
	DefaultOutput string `json:"default_output"`
	UploadDir     string `json:"upload_dir"`
	DatabasePath  string `json:"database_path"`
}

// Render holds default rendering parameters, applied when a request
// leaves them unset.
type Render struct {
	Size     int     `json:"size"`
	FPS      int     `json:"fps"`
	Duration float64 `json:"duration"`
	Scale    int     `json:"scale"`
	Seed     int64   `json:"seed"`
	Format   string  `json:"format"`
}

// Server configures the HTTP layer.
type Server struct {
	Addr          string `json:"addr"`
	MaxUploadSize int64  `json:"max_upload_size"` // bytes, per request
}

// Load reads configuration from disk, falling back to sensible defaults.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("PIXELMORPH_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Processing: Processing{
			ParallelJobs: 2,
			TempDir:      os.TempDir(),
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: true,
			LogDir:     "./logs",
		},
		Paths: Paths{
			DefaultOutput: "./output",
			UploadDir:     "./uploads",
			DatabasePath:  filepath.Join(os.TempDir(), "pixelmorph.db"),
		},
		Limits: DefaultLimits(),
		Render: Render{
			Size:     128,
			FPS:      30,
			Duration: 4.0,
			Scale:    8,
			Seed:     42,
			Format:   "mp4",
		},
		Server: Server{
			Addr:          ":8080",
			MaxUploadSize: 16 << 20,
		},
	}
}

// DefaultRender returns the stock rendering defaults, independent of
// any config file on disk.
func DefaultRender() Render {
	return defaultConfig().Render
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
