// Package config loads the optional geolocation.yaml plugin configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "geolocation.yaml"

// Environment overrides, read after .env is loaded.
const (
	EnvLogLevel = "GEOLOCATION_LOG_LEVEL"
	EnvVerbose  = "GEOLOCATION_VERBOSE"
)

// Config represents the optional geolocation.yaml configuration.
type Config struct {
	Plugin      PluginConfig  `yaml:"plugin"`
	Permissions []string      `yaml:"permissions,omitempty"`
	Log         LogConfig     `yaml:"log"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// PluginConfig names the plugin and the channels it is bound to.
type PluginConfig struct {
	Service        string `yaml:"service,omitempty"`
	Channel        string `yaml:"channel,omitempty"`
	ResultsChannel string `yaml:"results_channel,omitempty"`
}

// LogConfig controls plugin logging.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// MetricsConfig controls plugin metrics.
type MetricsConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
}

// Resolved contains configuration with defaults applied.
type Resolved struct {
	Root           string
	Service        string
	Channel        string
	ResultsChannel string
	Permissions    []string
	LogLevel       logrus.Level
	Verbose        bool
	MetricsNS      string
}

// LoadOptional reads geolocation.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads geolocation.yaml and dir/.env (both optional), applies
// environment overrides and fills in defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	service := strings.TrimSpace(cfg.Plugin.Service)
	if service == "" {
		service = "Geolocation"
	}

	channel := strings.TrimSpace(cfg.Plugin.Channel)
	if channel == "" {
		channel = geolocation.DefaultChannel
	}

	resultsChannel := strings.TrimSpace(cfg.Plugin.ResultsChannel)
	if resultsChannel == "" {
		resultsChannel = geolocation.ResultsChannelFor(channel)
	}
	if resultsChannel == channel {
		return nil, fmt.Errorf("results_channel must differ from channel %q", channel)
	}

	permissions, err := resolvePermissions(cfg.Permissions)
	if err != nil {
		return nil, err
	}

	levelName := strings.TrimSpace(cfg.Log.Level)
	if v := os.Getenv(EnvLogLevel); v != "" {
		levelName = v
	}
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	verbose := cfg.Log.Verbose
	if v := os.Getenv(EnvVerbose); v != "" {
		verbose, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvVerbose, v, err)
		}
	}

	namespace := strings.TrimSpace(cfg.Metrics.Namespace)
	if namespace == "" {
		namespace = "geolocation"
	}

	return &Resolved{
		Root:           dir,
		Service:        service,
		Channel:        channel,
		ResultsChannel: resultsChannel,
		Permissions:    permissions,
		LogLevel:       level,
		Verbose:        verbose,
		MetricsNS:      namespace,
	}, nil
}

// Logger returns a logrus logger configured with the resolved level.
func (r *Resolved) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(r.LogLevel)
	return log
}

func resolvePermissions(configured []string) ([]string, error) {
	if configured == nil {
		return geolocation.DefaultPermissionSet.Names(), nil
	}
	seen := make(map[string]bool, len(configured))
	out := make([]string, 0, len(configured))
	for _, p := range configured {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty permission name")
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("permissions must not be empty")
	}
	return out, nil
}
