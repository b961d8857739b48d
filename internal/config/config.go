// Package config loads deckmix command settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds runtime configuration, loaded from environment variables.
type Config struct {
	// Audio
	SampleRate int
	Decks      int

	// Analysis cache; empty disables it
	CachePath string

	// Mixer
	ReverbSeed      uint64 // 0 picks a random impulse response
	CrossfaderCurve string // smooth or sharp
	MicFile         string // looped file standing in for a live input
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate: envInt("DECKMIX_SAMPLE_RATE", 48000),
		Decks:      envInt("DECKMIX_DECKS", 2),

		CachePath: envStr("DECKMIX_CACHE_PATH", defaultCachePath()),

		ReverbSeed:      envUint("DECKMIX_REVERB_SEED", 0),
		CrossfaderCurve: strings.ToLower(envStr("DECKMIX_CROSSFADER_CURVE", "smooth")),
		MicFile:         envStr("DECKMIX_MIC_FILE", ""),
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "deckmix", "analysis.db")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
