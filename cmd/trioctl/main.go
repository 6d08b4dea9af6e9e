package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
)

const longHelp = `Talk to a Trio Motion MC508 controller over its telnet command line.

trioctl connects to the controller, answers its telnet negotiation and then
sends BASIC commands one at a time, printing what the controller answers.
Configuration comes from flags, TRIOCTL_* environment variables and the
TOML file at $HOME/.trioctl/config.toml, in that order of precedence.`

var exampleUsage = strings.TrimSpace(`
  trioctl exec "BASE(0)" "PRINT ATYPE"
  trioctl shell --host 192.168.0.250
  trioctl upload MC_CONFIG.bas --watch
  trioctl simulate --listen 127.0.0.1:2323
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func versionString() string {
	return fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCmd(a)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err, a.cfg.Port))
		stop()
		os.Exit(1)
	}
}
