package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	coretypes "github.com/projecteru2/core/types"
)

// ImageName is the well-known firmware name of the hypervisor image.
const ImageName = "hive.bin"

// Config holds global hive configuration.
type Config struct {
	// RunDir holds the daemon socket, pid file and instance lock.
	RunDir string `json:"run_dir" mapstructure:"run_dir"`
	// FirmwareDir is where hypervisor images are looked up by name.
	FirmwareDir string `json:"firmware_dir" mapstructure:"firmware_dir"`
	// VirtBase is the fixed virtual base the hypervisor region is mapped
	// at. The image is linked against this address.
	VirtBase uint64 `json:"virt_base" mapstructure:"virt_base"`
	// MemPath is the physical memory device backing region mappings.
	MemPath string `json:"mem_path" mapstructure:"mem_path"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RunDir:      "/run/hive",
		FirmwareDir: "/lib/firmware",
		VirtBase:    0x400000000000,
		MemPath:     "/dev/mem",
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return conf, nil
}

// EnsureRunDir creates the runtime directory.
func (c *Config) EnsureRunDir() error {
	return os.MkdirAll(c.RunDir, 0o755)
}

// SocketPath returns the daemon API socket path.
func (c *Config) SocketPath() string {
	return filepath.Join(c.RunDir, "hived.sock")
}

// PIDFile returns the daemon pid file path.
func (c *Config) PIDFile() string {
	return filepath.Join(c.RunDir, "hived.pid")
}

// InstanceLock returns the flock path guarding against a second daemon.
func (c *Config) InstanceLock() string {
	return filepath.Join(c.RunDir, "hived.lock")
}
