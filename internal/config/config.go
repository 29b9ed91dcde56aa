// Package config handles configuration loading, validation, and
// persistence for the SEER robot driver.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"

	DefaultRobotIP = "192.168.192.5"

	// Well-known robot ports per operation family.
	DefaultStatusPort     = 19204
	DefaultNavigationPort = 19204
	DefaultMotionPort     = 19205
	DefaultRotationPort   = 19206

	DefaultAPIPort = 5000
)

// Config is the root configuration structure.
type Config struct {
	mu   sync.RWMutex
	path string

	Robot       RobotData       `json:"robot"`
	Application ApplicationData `json:"application"`
}

// RobotData contains the robot endpoint and protocol timing settings.
type RobotData struct {
	IP string `json:"robot_ip"`

	// One port per operation family; the robot exposes status,
	// motion, and rotation on distinct listeners.
	StatusPort     int `json:"status_port"`
	NavigationPort int `json:"navigation_port"`
	MotionPort     int `json:"motion_port"`
	RotationPort   int `json:"rotation_port"`

	ConnectTimeoutSec  int `json:"connect_timeout_sec"`
	ResponseTimeoutSec int `json:"response_timeout_sec"`

	MonitorIntervalMS int `json:"monitor_interval_ms"`
	HistorySize       int `json:"history_size"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (r RobotData) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectTimeoutSec) * time.Second
}

// ResponseTimeout returns the per-call response timeout as a duration.
func (r RobotData) ResponseTimeout() time.Duration {
	return time.Duration(r.ResponseTimeoutSec) * time.Second
}

// MonitorInterval returns the position monitoring period.
func (r RobotData) MonitorInterval() time.Duration {
	return time.Duration(r.MonitorIntervalMS) * time.Millisecond
}

// ApplicationData contains driver application configuration.
type ApplicationData struct {
	API      APIConfig      `json:"api"`
	MQTT     MQTTConfig     `json:"mqtt"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	ClientID  string `json:"client_id"`
}

// SecurityConfig holds API security settings.
type SecurityConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
	IPWhitelist    []string `json:"ip_whitelist"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxBackups int    `json:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Robot: RobotData{
			IP:                 DefaultRobotIP,
			StatusPort:         DefaultStatusPort,
			NavigationPort:     DefaultNavigationPort,
			MotionPort:         DefaultMotionPort,
			RotationPort:       DefaultRotationPort,
			ConnectTimeoutSec:  5,
			ResponseTimeoutSec: 5,
			MonitorIntervalMS:  1000,
			HistorySize:        100,
		},
		Application: ApplicationData{
			API: APIConfig{
				Enabled: true,
				Port:    DefaultAPIPort,
			},
			MQTT: MQTTConfig{
				Enabled: false,
				Port:    8883,
				UseTLS:  true,
			},
			Security: SecurityConfig{
				RateLimitRPS: 100,
			},
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxBackups: 5,
			},
		},
	}
}

// Load reads configuration from a JSON file, creating a default one on
// first run. Missing fields fall back to defaults.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")
	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetRobot returns a copy of the robot configuration.
func (c *Config) GetRobot() RobotData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Robot
}

// SetRobot updates the robot configuration.
func (c *Config) SetRobot(data RobotData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Robot = data
}

// GetApplication returns a copy of the application configuration.
func (c *Config) GetApplication() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Application
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
