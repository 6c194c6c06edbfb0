// Package config loads the job-tuning settings shared by the prepdeck
// binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML settings file.  Every field has a usable default,
// so running without a file is fine.
type Config struct {
	// IANA timezone all date and weekday arithmetic is anchored to.
	// A rule's "Monday" is Monday in this zone, not UTC.
	Timezone string `yaml:"timezone"`

	// Push gateway endpoint; empty selects the Expo default.
	PushEndpoint string `yaml:"pushEndpoint"`

	Digest DigestConfig `yaml:"digest"`
}

type DigestConfig struct {
	// Local hour of day after which the daily digest goes out.
	SendHour    int    `yaml:"sendHour"`
	FromAddress string `yaml:"fromAddress"`
}

func Default() *Config {
	return &Config{
		Timezone: "America/Chicago",
		Digest: DigestConfig{
			SendHour:    5,
			FromAddress: "bot@prepdeck.app",
		},
	}
}

// Load reads a YAML config file, layering it over the defaults.  An
// empty path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("while reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("while decoding config file %s: %w", path, err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("while validating timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Digest.SendHour < 0 || cfg.Digest.SendHour > 23 {
		return nil, fmt.Errorf("digest sendHour %d out of range", cfg.Digest.SendHour)
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("while loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
