package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
	"lab47.dev/debdeps/pkg/verify"
)

const (
	DefaultConfigPath   = "~/.config/debdeps/config.json"
	DefaultServer       = "localhost:4590"
	DefaultPackages     = "Packages"
	DefaultInstalled    = "/var/lib/dpkg/status"
	DefaultConcurrency  = 16
	DefaultPollInterval = 30 * time.Second
	DefaultLogLevel     = "warn"

	Version = "0.1.0"
)

type Config struct {
	path string

	Server      string `json:"server"`
	Packages    string `json:"packages"`
	Installed   string `json:"installed"`
	Sums        string `json:"sums"`
	CacheDir    string `json:"cache-dir"`
	Concurrency int    `json:"concurrency"`
	LogLevel    string `json:"log-level"`
	Color       bool   `json:"color"`

	// Durations use time.ParseDuration syntax.
	PollIntervalSpec string `json:"poll-interval"`
	TimeoutSpec      string `json:"timeout"`

	PollInterval time.Duration `json:"-"`
	Timeout      time.Duration `json:"-"`
}

// Default returns a configuration that ignores the environment.
func Default() *Config {
	return &Config{
		Server:       DefaultServer,
		Packages:     DefaultPackages,
		Installed:    DefaultInstalled,
		Concurrency:  DefaultConcurrency,
		LogLevel:     DefaultLogLevel,
		PollInterval: DefaultPollInterval,
	}
}

// LoadConfig reads the config file, if there is one, and applies
// environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	if loc := os.Getenv("DEBDEPS_CONFIG"); loc != "" {
		return LoadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return LoadFile(path)
	}

	cfg := Default()
	cfg.path = path

	return updateFromEnv(cfg)
}

// LoadFile reads the config file at path and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	cfg := Default()

	err = json.NewDecoder(f).Decode(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}

	cfg.path = path

	if cfg.PollIntervalSpec != "" {
		cfg.PollInterval, err = time.ParseDuration(cfg.PollIntervalSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "poll-interval in %s", path)
		}
	}

	if cfg.TimeoutSpec != "" {
		cfg.Timeout, err = time.ParseDuration(cfg.TimeoutSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "timeout in %s", path)
		}
	}

	if cfg.CacheDir != "" {
		cfg.CacheDir, err = homedir.Expand(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
	}

	return updateFromEnv(cfg)
}

func updateFromEnv(cfg *Config) (*Config, error) {
	if s := os.Getenv("DEBDEPS_SERVER"); s != "" {
		cfg.Server = s
	}

	if path := os.Getenv("DEBDEPS_PACKAGES"); path != "" {
		cfg.Packages = path
	}

	if path := os.Getenv("DEBDEPS_INSTALLED"); path != "" {
		cfg.Installed = path
	}

	if path := os.Getenv("DEBDEPS_SUMS"); path != "" {
		cfg.Sums = path
	}

	if lvl := os.Getenv("DEBDEPS_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if s := os.Getenv("DEBDEPS_CONCURRENCY"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, errors.Errorf("DEBDEPS_CONCURRENCY must be a positive integer: %s", s)
		}

		cfg.Concurrency = n
	}

	if s := os.Getenv("DEBDEPS_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, errors.Wrapf(err, "DEBDEPS_TIMEOUT")
		}

		cfg.Timeout = d
	}

	return cfg, nil
}

// Path is the file the configuration was, or would be, loaded from.
func (c *Config) Path() string {
	return c.path
}

func Platform() (string, string, string) {
	osName, _, osVersion, err := host.PlatformInformation()
	if err != nil {
		return runtime.GOOS, "", runtime.GOARCH
	}

	arch, err := host.KernelArch()
	if err != nil {
		arch = runtime.GOARCH
	}

	return osName, osVersion, arch
}

// UserAgent identifies this tool and the host platform to the checksum
// server.
func (c *Config) UserAgent() string {
	osName, osVersion, arch := Platform()

	if osVersion == "" {
		return fmt.Sprintf("debdeps/%s (%s; %s)", Version, osName, arch)
	}

	return fmt.Sprintf("debdeps/%s (%s %s; %s)", Version, osName, osVersion, arch)
}

func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{
		Server:       c.Server,
		Concurrency:  c.Concurrency,
		PollInterval: c.PollInterval,
		Timeout:      c.Timeout,
		UserAgent:    c.UserAgent(),
	}
}
