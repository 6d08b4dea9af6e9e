package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-trio/devicesim"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		banner        string
		noEcho        bool
		responseDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated controller for testing",
		Long: `Listen for telnet connections and answer like an MC508 controller.
The simulator accepts one session at a time and keeps programs in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []devicesim.Option{
				devicesim.WithLogger(a.log),
				devicesim.WithBanner(banner),
				devicesim.WithResponseDelay(responseDelay),
			}
			if noEcho {
				opts = append(opts, devicesim.WithoutEcho())
			}

			srv := devicesim.NewServer(opts...)
			if err := srv.Start(a.cfg.Listen); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Simulator listening on %s\n", srv.Addr())

			<-cmd.Context().Done()

			return srv.Close()
		},
	}

	cmd.Flags().StringVar(&a.cfg.Listen, "listen", a.cfg.Listen, "address to listen on")
	cmd.Flags().StringVar(&banner, "banner", devicesim.DefaultBanner, "banner sent to new sessions")
	cmd.Flags().BoolVar(&noEcho, "no-echo", false, "do not echo received lines")
	cmd.Flags().DurationVar(&responseDelay, "response-delay", 0, "delay every reply by this long")

	return cmd
}
