package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/Versifine/packetgate/internal/session"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Listen   Endpoint       `yaml:"listen" toml:"listen"`
	Backend  Endpoint       `yaml:"backend" toml:"backend"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Protocol ProtocolConfig `yaml:"protocol" toml:"protocol"`
	Console  ConsoleConfig  `yaml:"console" toml:"console"`
}

type Endpoint struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

type ProtocolConfig struct {
	// PlatformVersion is a release name ("1.21.4") or protocol number.
	PlatformVersion string `yaml:"platform_version" toml:"platform_version"`
	MaxPacketSize   int    `yaml:"max_packet_size" toml:"max_packet_size"`
	RegistryShards  int    `yaml:"registry_shards" toml:"registry_shards"`
}

type ConsoleConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Listen:  Endpoint{Host: "0.0.0.0", Port: 25565},
		Backend: Endpoint{Host: "127.0.0.1", Port: 25566},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Protocol: ProtocolConfig{
			PlatformVersion: protocol.LatestRelease.String(),
			MaxPacketSize:   protocol.MaxPacketSize,
			RegistryShards:  session.DefaultShards,
		},
	}
}

// Load reads path as TOML when it ends in .toml and as YAML otherwise,
// fills unset values from Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Listen.Host == "" {
		c.Listen.Host = d.Listen.Host
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = d.Listen.Port
	}
	if c.Backend.Host == "" {
		c.Backend.Host = d.Backend.Host
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = d.Backend.Port
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Protocol.PlatformVersion == "" {
		c.Protocol.PlatformVersion = d.Protocol.PlatformVersion
	}
	if c.Protocol.MaxPacketSize == 0 {
		c.Protocol.MaxPacketSize = d.Protocol.MaxPacketSize
	}
	if c.Protocol.RegistryShards == 0 {
		c.Protocol.RegistryShards = d.Protocol.RegistryShards
	}
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Listen.validate("listen"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Backend.validate("backend"); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format))
	}
	if _, err := c.Protocol.Platform(); err != nil {
		errs = append(errs, fmt.Errorf("%w: protocol.platform_version: %w", ErrInvalidConfig, err))
	}
	if c.Protocol.MaxPacketSize < 0 || c.Protocol.MaxPacketSize > protocol.MaxPacketSize {
		errs = append(errs, fmt.Errorf("%w: protocol.max_packet_size %d", ErrInvalidConfig, c.Protocol.MaxPacketSize))
	}
	if c.Protocol.RegistryShards < 0 {
		errs = append(errs, fmt.Errorf("%w: protocol.registry_shards %d", ErrInvalidConfig, c.Protocol.RegistryShards))
	}
	return errors.Join(errs...)
}

// Platform parses PlatformVersion. An empty value means the latest
// release.
func (p ProtocolConfig) Platform() (protocol.ClientVersion, error) {
	if p.PlatformVersion == "" {
		return protocol.LatestRelease, nil
	}
	return protocol.ParseClientVersion(p.PlatformVersion)
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Set overwrites e from a "host:port" string.
func (e *Endpoint) Set(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, port)
	}
	e.Host, e.Port = host, n
	return nil
}

func (e Endpoint) validate(section string) error {
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("%w: %s.port %d", ErrInvalidConfig, section, e.Port)
	}
	return nil
}
