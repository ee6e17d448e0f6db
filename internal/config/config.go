// Package config loads exporter configuration from environment variables,
// with an optional TOML file overlay for deployments that prefer files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all runtime configuration for the export engine.
type Config struct {
	// External tools
	FFmpegBin  string `toml:"ffmpeg_bin"`
	FFprobeBin string `toml:"ffprobe_bin"`

	// Output surface
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`

	// Codec preference order by candidate name; empty means the built-in
	// order
	CodecPreference []string `toml:"codec_preference"`

	// Scratch space; empty means the system temp dir
	WorkDir string `toml:"work_dir"`

	// Voice normalization service (empty URL disables the pass)
	RVCURL       string  `toml:"rvc_url"`
	RVCModel     string  `toml:"rvc_model"`
	RVCF0Method  string  `toml:"rvc_f0_method"`
	RVCIndexRate float64 `toml:"rvc_index_rate"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		FFmpegBin:  envStr("EXPORT_FFMPEG_BIN", "ffmpeg"),
		FFprobeBin: envStr("EXPORT_FFPROBE_BIN", "ffprobe"),

		Width:  envInt("EXPORT_WIDTH", 1280),
		Height: envInt("EXPORT_HEIGHT", 720),
		FPS:    envInt("EXPORT_FPS", 30),

		CodecPreference: envList("EXPORT_CODEC_PREFERENCE"),

		WorkDir: envStr("EXPORT_WORK_DIR", ""),

		RVCURL:       envStr("EXPORT_RVC_URL", ""),
		RVCModel:     envStr("EXPORT_RVC_MODEL", "coach-voice-v1"),
		RVCF0Method:  envStr("EXPORT_RVC_F0_METHOD", "rmvpe"),
		RVCIndexRate: envFloat("EXPORT_RVC_INDEX_RATE", 0.75),
	}
}

// LoadFile loads env configuration and overlays it with the TOML file at
// path. File values win over env values.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects geometry the capture pipeline cannot work with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("invalid frame rate %d", c.FPS)
	}
	if c.RVCIndexRate < 0 || c.RVCIndexRate > 1 {
		return fmt.Errorf("rvc_index_rate %f outside [0, 1]", c.RVCIndexRate)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
