package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const historySize = 500

// lineEditor reads shell input with line editing and history when stdin is
// a terminal, and line by line otherwise.
type lineEditor struct {
	rl    *readline.Instance
	lines <-chan scannedLine
	stop  chan struct{}
	out   io.Writer
}

type scannedLine struct {
	text string
	err  error
}

func newLineEditor(in io.Reader, out io.Writer, historyFile string) *lineEditor {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewFromConfig(&readline.Config{
			HistoryFile:            historyFile,
			HistoryLimit:           historySize,
			DisableAutoSaveHistory: true,
		})
		if err == nil {
			return &lineEditor{rl: rl, out: out}
		}
		fmt.Fprintf(out, "readline unavailable (%v), using basic input\n", err)
	}

	stop := make(chan struct{})

	return &lineEditor{lines: scanLines(in, stop), stop: stop, out: out}
}

// scanLines reads in on its own goroutine so that a pending read does not
// hold up cancellation. The goroutine exits at the end of input or at the
// first line scanned after stop is closed.
func scanLines(in io.Reader, stop <-chan struct{}) <-chan scannedLine {
	ch := make(chan scannedLine)
	go func() {
		defer close(ch)

		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- scannedLine{text: sc.Text()}:
			case <-stop:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case ch <- scannedLine{err: err}:
		case <-stop:
		}
	}()

	return ch
}

// readLine returns the next line, or io.EOF when input ends, the user
// interrupts or ctx is done.
func (le *lineEditor) readLine(ctx context.Context, prompt string) (string, error) {
	if le.rl == nil {
		fmt.Fprint(le.out, prompt)
		select {
		case <-ctx.Done():
			return "", io.EOF
		case l, ok := <-le.lines:
			if !ok {
				return "", io.EOF
			}
			return l.text, l.err
		}
	}

	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}

	return line, nil
}

func (le *lineEditor) interactive() bool { return le.rl != nil }

func (le *lineEditor) Close() {
	if le.stop != nil {
		close(le.stop)
		le.stop = nil
	}
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}
