package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	ConnectTimeout string `toml:"connect_timeout"`
	ConnectWait    string `toml:"connect_wait"`
	SettleDelay    string `toml:"settle_delay"`
	CollectWindow  string `toml:"collect_window"`
	EchoPrefixLen  int    `toml:"echo_prefix_len"`
	Program        string `toml:"program"`
	CommitWait     string `toml:"commit_wait"`
	LogLevel       string `toml:"log_level"`
	Debug          *bool  `toml:"debug"`
	HistoryFile    string `toml:"history_file"`
	Listen         string `toml:"listen"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig

	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}

	return fc, nil
}

// DefaultConfigPath returns ~/.trioctl/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".trioctl", "config.toml")
	}

	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("program", fc.Program, &cfg.Program)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("history", fc.HistoryFile, &cfg.HistoryFile)
	s.setString("listen", fc.Listen, &cfg.Listen)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("echo-prefix", fc.EchoPrefixLen, &cfg.EchoPrefixLen)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"timeout", fc.ConnectTimeout, &cfg.ConnectTimeout},
		{"wait", fc.ConnectWait, &cfg.ConnectWait},
		{"settle", fc.SettleDelay, &cfg.SettleDelay},
		{"collect", fc.CollectWindow, &cfg.CollectWindow},
		{"commit-wait", fc.CommitWait, &cfg.CommitWait},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("debug", fc.Debug, &cfg.Debug)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
