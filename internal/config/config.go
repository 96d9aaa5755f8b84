package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds daemon configuration paths and endpoint settings.
type Config struct {
	ConfigPath     string
	CatalogDir     string
	DataDir        string
	LogDir         string
	RunDir         string
	SocketPath     string
	DBPath         string
	MetricsListen  string
	DockerSocket   string
	ImageRegistry  string
	LicenseURL     string
	LicenseKeyPath string
	MonitorURL     string
	MonitorToken   string
	UpdateURL      string
	VersionFile    string
}

// FileConfig represents supported YAML config overrides.
type FileConfig struct {
	CatalogDir     string `yaml:"catalog_dir"`
	DataDir        string `yaml:"data_dir"`
	LogDir         string `yaml:"log_dir"`
	RunDir         string `yaml:"run_dir"`
	SocketPath     string `yaml:"socket_path"`
	DBPath         string `yaml:"db_path"`
	MetricsListen  string `yaml:"metrics_listen"`
	DockerSocket   string `yaml:"docker_socket"`
	ImageRegistry  string `yaml:"image_registry"`
	LicenseURL     string `yaml:"license_url"`
	LicenseKeyPath string `yaml:"license_key_path"`
	MonitorURL     string `yaml:"monitor_url"`
	MonitorToken   string `yaml:"monitor_token"`
	UpdateURL      string `yaml:"update_url"`
	VersionFile    string `yaml:"version_file"`
}

func DefaultConfig() Config {
	dataDir := "/var/lib/deckhand"
	runDir := "/run/deckhand"
	return Config{
		ConfigPath:     "/etc/deckhand/config.yaml",
		CatalogDir:     "/etc/deckhand/products",
		DataDir:        dataDir,
		LogDir:         "/var/log/deckhand",
		RunDir:         runDir,
		SocketPath:     filepath.Join(runDir, "deckhandd.sock"),
		DBPath:         filepath.Join(dataDir, "deckhand.db"),
		MetricsListen:  "",
		DockerSocket:   "/var/run/docker.sock",
		ImageRegistry:  "registry.itech.example.com",
		LicenseURL:     "https://license.itech.example.com",
		LicenseKeyPath: filepath.Join(dataDir, "keys", "license.key"),
		MonitorURL:     "",
		MonitorToken:   "",
		UpdateURL:      "",
		VersionFile:    "",
	}
}

// Load reads the YAML config file and applies overrides to defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		cfg.ConfigPath = path
	}
	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", cfg.ConfigPath, err)
	}
	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", cfg.ConfigPath, err)
	}
	applyFileConfig(&cfg, fileCfg)
	if fileCfg.DataDir != "" && fileCfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "deckhand.db")
	}
	if fileCfg.DataDir != "" && fileCfg.LicenseKeyPath == "" {
		cfg.LicenseKeyPath = filepath.Join(cfg.DataDir, "keys", "license.key")
	}
	if fileCfg.RunDir != "" && fileCfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.RunDir, "deckhandd.sock")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fileCfg FileConfig) {
	if fileCfg.CatalogDir != "" {
		cfg.CatalogDir = fileCfg.CatalogDir
	}
	if fileCfg.DataDir != "" {
		cfg.DataDir = fileCfg.DataDir
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}
	if fileCfg.RunDir != "" {
		cfg.RunDir = fileCfg.RunDir
	}
	if fileCfg.SocketPath != "" {
		cfg.SocketPath = fileCfg.SocketPath
	}
	if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	}
	if fileCfg.MetricsListen != "" {
		cfg.MetricsListen = fileCfg.MetricsListen
	}
	if fileCfg.DockerSocket != "" {
		cfg.DockerSocket = fileCfg.DockerSocket
	}
	if fileCfg.ImageRegistry != "" {
		cfg.ImageRegistry = fileCfg.ImageRegistry
	}
	if fileCfg.LicenseURL != "" {
		cfg.LicenseURL = fileCfg.LicenseURL
	}
	if fileCfg.LicenseKeyPath != "" {
		cfg.LicenseKeyPath = fileCfg.LicenseKeyPath
	}
	if fileCfg.MonitorURL != "" {
		cfg.MonitorURL = fileCfg.MonitorURL
	}
	if fileCfg.MonitorToken != "" {
		cfg.MonitorToken = fileCfg.MonitorToken
	}
	if fileCfg.UpdateURL != "" {
		cfg.UpdateURL = fileCfg.UpdateURL
	}
	if fileCfg.VersionFile != "" {
		cfg.VersionFile = fileCfg.VersionFile
	}
}

// Validate performs basic validation without exposing secrets.
func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return fmt.Errorf("config_path is required")
	}
	if c.CatalogDir == "" {
		return fmt.Errorf("catalog_dir is required")
	}
	if c.RunDir == "" {
		return fmt.Errorf("run_dir is required")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.DockerSocket == "" {
		return fmt.Errorf("docker_socket is required")
	}
	if c.ImageRegistry == "" {
		return fmt.Errorf("image_registry is required")
	}
	if c.LicenseURL == "" {
		return fmt.Errorf("license_url is required")
	}
	if c.LicenseKeyPath == "" {
		return fmt.Errorf("license_key_path is required")
	}
	for name, value := range map[string]string{
		"license_url": c.LicenseURL,
		"monitor_url": c.MonitorURL,
		"update_url":  c.UpdateURL,
	} {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute url (got %q)", name, value)
		}
	}
	if strings.TrimSpace(c.MetricsListen) != "" {
		host, _, err := net.SplitHostPort(c.MetricsListen)
		if err != nil {
			return fmt.Errorf("metrics_listen must be host:port: %w", err)
		}
		if !isLoopbackHost(host) {
			return fmt.Errorf("metrics_listen must be localhost-only (got %q)", host)
		}
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
