package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/shell"
	"github.com/arloliu/go-trio/upload"
)

const (
	// DefaultHost is the factory address of an MC508 controller.
	DefaultHost = "192.168.0.250"
	// DefaultListenAddr is where "trioctl simulate" listens by default.
	DefaultListenAddr = "127.0.0.1:2323"
)

// Config holds CLI configuration for trioctl.
type Config struct {
	Host string
	Port int

	ConnectTimeout time.Duration
	ConnectWait    time.Duration
	SettleDelay    time.Duration
	CollectWindow  time.Duration
	EchoPrefixLen  int

	Program    string
	CommitWait time.Duration

	LogLevel    string
	Debug       bool
	HistoryFile string
	Listen      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:           DefaultHost,
		Port:           shell.DefaultPort,
		ConnectTimeout: shell.DefaultConnectTimeout,
		ConnectWait:    shell.DefaultConnectWait,
		SettleDelay:    shell.DefaultSettleDelay,
		CollectWindow:  shell.DefaultCollectWindow,
		EchoPrefixLen:  shell.DefaultEchoPrefixLen,
		Program:        upload.DefaultProgram,
		CommitWait:     upload.DefaultCommitWait,
		LogLevel:       "info",
		HistoryFile:    DefaultHistoryFile(),
		Listen:         DefaultListenAddr,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("connect timeout must be positive")
	}
	if c.ConnectWait < 0 {
		return errors.New("connect wait must not be negative")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle delay must not be negative")
	}
	if c.CollectWindow <= 0 {
		return errors.New("collect window must be positive")
	}
	if c.CommitWait <= 0 {
		return errors.New("commit wait must be positive")
	}

	if c.Debug {
		c.LogLevel = "debug"
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	c.Program = strings.ToUpper(strings.TrimSpace(c.Program))
	if c.Program == "" {
		c.Program = upload.DefaultProgram
	}

	return nil
}

// ConnectionConfig builds the session configuration for c.
func (c *Config) ConnectionConfig(log logger.Logger) (*shell.ConnectionConfig, error) {
	return shell.NewConnectionConfig(c.Host, c.Port,
		shell.WithConnectTimeout(c.ConnectTimeout),
		shell.WithConnectWait(c.ConnectWait),
		shell.WithSettleDelay(c.SettleDelay),
		shell.WithCollectWindow(c.CollectWindow),
		shell.WithEchoPrefixLen(c.EchoPrefixLen),
		shell.WithLogger(log),
	)
}

// DefaultHistoryFile returns the shell history path, ~/.trioctl_history.
func DefaultHistoryFile() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".trioctl_history")
	}

	return ""
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration. "0s" is accepted for waits that
// may be disabled.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d

	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i

	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
