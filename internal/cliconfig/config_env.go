package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TRIOCTL_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("TRIOCTL_HOST"), &cfg.Host)
	s.setString("program", os.Getenv("TRIOCTL_PROGRAM"), &cfg.Program)
	s.setString("log-level", os.Getenv("TRIOCTL_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("history", os.Getenv("TRIOCTL_HISTORY_FILE"), &cfg.HistoryFile)
	s.setString("listen", os.Getenv("TRIOCTL_LISTEN"), &cfg.Listen)

	if err := s.setIntFromString("port", os.Getenv("TRIOCTL_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("echo-prefix", os.Getenv("TRIOCTL_ECHO_PREFIX_LEN"), &cfg.EchoPrefixLen); err != nil {
		return err
	}

	if err := s.setDuration("timeout", os.Getenv("TRIOCTL_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait", os.Getenv("TRIOCTL_CONNECT_WAIT"), &cfg.ConnectWait); err != nil {
		return err
	}
	if err := s.setDuration("settle", os.Getenv("TRIOCTL_SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setDuration("collect", os.Getenv("TRIOCTL_COLLECT_WINDOW"), &cfg.CollectWindow); err != nil {
		return err
	}
	if err := s.setDuration("commit-wait", os.Getenv("TRIOCTL_COMMIT_WAIT"), &cfg.CommitWait); err != nil {
		return err
	}

	s.setBoolFromString("debug", os.Getenv("TRIOCTL_DEBUG"), &cfg.Debug)

	return nil
}
