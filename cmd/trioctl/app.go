package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/go-trio/internal/cliconfig"
	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/shell"
)

// app is the state shared by the subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	log logger.Logger
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		cfg:    cliconfig.DefaultConfig(),
		in:     in,
		out:    out,
		errOut: errOut,
		log:    logger.GetLogger(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "trioctl",
		Short:         "Command-line client for Trio Motion controllers",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.trioctl/config.toml)")
	flags.StringVar(&a.cfg.Host, "host", a.cfg.Host, "controller address")
	flags.IntVar(&a.cfg.Port, "port", a.cfg.Port, "controller telnet port")
	flags.DurationVar(&a.cfg.ConnectTimeout, "timeout", a.cfg.ConnectTimeout, "connect timeout")
	flags.DurationVar(&a.cfg.ConnectWait, "wait", a.cfg.ConnectWait, "wait after connect before reading the banner")
	flags.DurationVar(&a.cfg.SettleDelay, "settle", a.cfg.SettleDelay, "wait after sending a command")
	flags.DurationVar(&a.cfg.CollectWindow, "collect", a.cfg.CollectWindow, "idle window that ends a response")
	flags.IntVar(&a.cfg.EchoPrefixLen, "echo-prefix", a.cfg.EchoPrefixLen, "command characters used to recognise the echo")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&a.cfg.Debug, "debug", a.cfg.Debug, "show raw bytes and debug logs")
	if err := flags.MarkHidden("echo-prefix"); err != nil {
		a.log.Warn("failed to hide echo-prefix flag", "error", err)
	}

	root.AddCommand(
		newExecCmd(a),
		newShellCmd(a),
		newUploadCmd(a),
		newSimulateCmd(a),
	)

	return root
}

// load applies the config file and the environment under the flags that
// were set explicitly, validates the result and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	level, err := logger.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = logger.NewSlogWithWriter(a.errOut, level, false)
	logger.SetLogger(a.log)

	return nil
}

// connect dials the controller, primes the session and prints the banner.
func (a *app) connect(ctx context.Context) (*shell.Session, error) {
	cc, err := a.cfg.ConnectionConfig(a.log)
	if err != nil {
		return nil, err
	}

	sess, err := shell.Dial(ctx, cc)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "Connected to %s\n", cc.Addr())

	banner, err := sess.ConnectAndPrime()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	if banner != "" {
		fmt.Fprintf(a.out, "Banner: %s\n", banner)
	}

	return sess, nil
}

func printResponse(w io.Writer, resp string) {
	if resp == "" {
		fmt.Fprintln(w, "(no response)")
		return
	}
	fmt.Fprintln(w, resp)
}
