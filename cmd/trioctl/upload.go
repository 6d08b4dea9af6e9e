package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-trio/upload"
)

const defaultDebounce = 500 * time.Millisecond

func newUploadCmd(a *app) *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Replace a program on the controller and commit it to flash",
		Long: `Upload the BASIC source in FILE as a controller program (MC_CONFIG by
default), list it back and commit it to flash. Blank lines and comment lines
starting with ' are not uploaded.

With --watch, upload keeps running and uploads the file again every time it
is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			err := a.uploadFile(ctx, path)
			if !watch {
				return err
			}
			if err != nil {
				fmt.Fprintln(a.errOut, describeError(err, a.cfg.Port))
			}

			fmt.Fprintf(a.out, "\nWatching %s for changes (Ctrl-C to stop)\n", path)

			return watchFile(ctx, path, debounce, a.log, func() {
				fmt.Fprintf(a.out, "\n%s changed, uploading again\n", path)
				if err := a.uploadFile(ctx, path); err != nil {
					fmt.Fprintln(a.errOut, describeError(err, a.cfg.Port))
				}
			})
		},
	}

	cmd.Flags().StringVar(&a.cfg.Program, "program", a.cfg.Program, "name of the program to replace")
	cmd.Flags().DurationVar(&a.cfg.CommitWait, "commit-wait", a.cfg.CommitWait, "wait for the flash commit messages")
	cmd.Flags().BoolVar(&watch, "watch", false, "upload again whenever FILE changes")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet time after a change before uploading")

	return cmd
}

func (a *app) uploadFile(ctx context.Context, path string) error {
	prog, err := upload.LoadProgram(path)
	if err != nil {
		return err
	}
	if len(prog) == 0 {
		return fmt.Errorf("no program lines found in %s: %w", path, upload.ErrEmptyProgram)
	}

	fmt.Fprintf(a.out, "Config file: %s\n", path)
	fmt.Fprintln(a.out, "Program lines to upload:")
	for _, line := range prog {
		fmt.Fprintf(a.out, "  %s\n", line)
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	u, err := upload.NewUploader(sess,
		upload.WithProgram(a.cfg.Program),
		upload.WithCommitWait(a.cfg.CommitWait),
		upload.WithProgress(a.uploadProgress(prog)),
		upload.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	res, err := u.Upload(ctx, prog)
	if err != nil {
		return err
	}

	if res.CommitOutput != "" {
		fmt.Fprintln(a.out, res.CommitOutput)
	}
	fmt.Fprintln(a.out, "Commit -> done")
	fmt.Fprintf(a.out, "\nDIR:\n%s\n", res.Directory)

	if !res.Verified() {
		fmt.Fprintf(a.out, "\nWarning: controller reports %d lines, %d were uploaded\n", res.StoredLines, res.Inserted)
	}
	fmt.Fprintln(a.out, "\nDone! Power cycle the controller to apply ATYPE changes.")

	return nil
}

// uploadProgress prints each upload command as it completes.
func (a *app) uploadProgress(prog upload.Program) func(upload.Event) {
	return func(ev upload.Event) {
		switch ev.Step {
		case upload.StepSelect:
			fmt.Fprintf(a.out, "\n%s -> %s\n", ev.Command, ev.Response)

		case upload.StepCount:
			fmt.Fprintf(a.out, "Current line count -> %s\n", ev.Response)

		case upload.StepDelete:
			if ev.Index == 0 {
				fmt.Fprintf(a.out, "Deleting %d existing lines...\n", ev.Total)
			}
			if upload.IsDeviceError(ev.Response) {
				fmt.Fprintf(a.out, "  Delete error: %s\n", ev.Response)
			}

		case upload.StepInsert:
			if ev.Index == 0 {
				fmt.Fprintln(a.out, "Inserting lines...")
			}
			if upload.IsDeviceError(ev.Response) {
				fmt.Fprintf(a.out, "  ERROR on line %d '%s': %s\n", ev.Index, prog[ev.Index], ev.Response)
				return
			}
			fmt.Fprintf(a.out, "  Line %d: %s -> OK\n", ev.Index, prog[ev.Index])

		case upload.StepVerify:
			fmt.Fprintf(a.out, "\nLine count after insert -> %s\n", ev.Response)

		case upload.StepList:
			fmt.Fprintf(a.out, "Listing:\n%s\n", ev.Response)

		case upload.StepCommit:
			fmt.Fprintln(a.out, "\nCommitting to flash...")
		}
	}
}
