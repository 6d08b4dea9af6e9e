package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const shellPrompt = "trio> "

func newShellCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive command line on the controller",
		Long: `Open one session and send every line typed to the controller.
Type exit or quit, or end the input, to close the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			ed := newLineEditor(a.in, a.out, a.cfg.HistoryFile)
			defer ed.Close()
			if ed.interactive() {
				fmt.Fprintln(a.out, "Type exit or quit to leave.")
			}

			for {
				if err := cmd.Context().Err(); err != nil {
					return nil
				}

				line, err := ed.readLine(cmd.Context(), shellPrompt)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				line = strings.TrimSpace(line)
				switch strings.ToLower(line) {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				resp, err := sess.Exchange(line)
				if err != nil {
					return err
				}
				printResponse(a.out, resp)
			}
		},
	}
	cmd.Flags().StringVar(&a.cfg.HistoryFile, "history", a.cfg.HistoryFile, "history file for interactive input")

	return cmd
}
