package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	defaultCommand  = `PRINT "Hello MC508"`
	rawPreviewBytes = 200
)

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [COMMAND...]",
		Short: "Send commands and print the responses",
		Long: `Send each command in order over one session and print the response.
Without arguments, exec sends ` + defaultCommand + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultCommand}
			}

			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			for _, c := range args {
				fmt.Fprintf(a.out, "\n>> %s\n", c)

				reply, err := sess.ExchangeRaw(c)
				if err != nil {
					return err
				}
				if a.cfg.Debug {
					printRaw(a, reply.Raw)
				}
				printResponse(a.out, reply.Response)
			}

			return nil
		},
	}
}

func printRaw(a *app, raw []byte) {
	preview := raw
	if len(preview) > rawPreviewBytes {
		preview = preview[:rawPreviewBytes]
	}
	fmt.Fprintf(a.out, "   Raw (%d bytes): %s\n", len(raw), hex.EncodeToString(preview))
	if len(raw) > 0 {
		fmt.Fprintf(a.out, "   Repr: %q\n", preview)
	}
}
