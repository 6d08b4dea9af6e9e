package upload

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-trio/internal/pool"
	"github.com/arloliu/go-trio/logger"
)

const (
	// DefaultProgram is the program the controller runs at power-up to
	// configure its axes.
	DefaultProgram = "MC_CONFIG"
	// DefaultListLines is how many lines are listed back after the upload.
	DefaultListLines = 10
	// DefaultCommitWait is how long to wait for the flash commit messages.
	DefaultCommitWait = 2 * time.Second
)

var programNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Exchanger runs commands on a primed controller session.
// *shell.Session implements it.
type Exchanger interface {
	Exchange(cmd string) (string, error)
	Drain(window time.Duration) (string, error)
}

// Step identifies one stage of an upload.
type Step string

const (
	StepSelect Step = "select"
	StepCount  Step = "count"
	StepDelete Step = "delete"
	StepInsert Step = "insert"
	StepVerify Step = "verify"
	StepList   Step = "list"
	StepCommit Step = "commit"
	StepDir    Step = "dir"
)

// Event reports one command of an upload to the progress callback.
type Event struct {
	Step     Step
	Index    int // position within the step, for delete and insert
	Total    int // number of commands in the step, for delete and insert
	Command  string
	Response string
}

// Result holds what the controller answered during an upload.
type Result struct {
	Program string
	// PreviousLines is the line count before the upload.
	PreviousLines int
	// Deleted is the number of lines removed before inserting.
	Deleted int
	// DeleteError is the device error that stopped the deletion, if any.
	DeleteError string
	// Inserted is the number of lines stored.
	Inserted int
	// StoredLines is the line count read back after inserting, -1 if the
	// controller did not answer with a number.
	StoredLines int
	// Listing is the controller's listing of the first program lines.
	Listing string
	// CommitOutput is what the controller printed while committing.
	CommitOutput string
	// Directory is the response to DIR.
	Directory string
	// Events lists every command sent, in order.
	Events []Event
}

// Verified reports whether the stored line count matches the number of
// inserted lines.
func (r *Result) Verified() bool {
	return r.StoredLines == r.Inserted
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithProgram sets the name of the program to replace. Names are upper-cased.
func WithProgram(name string) Option {
	return func(u *Uploader) { u.program = strings.ToUpper(strings.TrimSpace(name)) }
}

// WithListLines sets how many lines are listed back after the upload.
func WithListLines(n int) Option {
	return func(u *Uploader) { u.listLines = n }
}

// WithCommitWait sets how long to wait for, and then drain, the flash
// commit messages.
func WithCommitWait(d time.Duration) Option {
	return func(u *Uploader) { u.commitWait = d }
}

// WithProgress sets a callback invoked after every command.
func WithProgress(fn func(Event)) Option {
	return func(u *Uploader) { u.progress = fn }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l logger.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// Uploader replaces a program on the controller.
type Uploader struct {
	ex         Exchanger
	program    string
	listLines  int
	commitWait time.Duration
	progress   func(Event)
	logger     logger.Logger
}

// NewUploader returns an Uploader running its commands through ex.
func NewUploader(ex Exchanger, opts ...Option) (*Uploader, error) {
	if ex == nil {
		return nil, fmt.Errorf("upload: exchanger is nil")
	}

	u := &Uploader{
		ex:         ex,
		program:    DefaultProgram,
		listLines:  DefaultListLines,
		commitWait: DefaultCommitWait,
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(u)
	}

	if !programNamePattern.MatchString(u.program) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProgramName, u.program)
	}
	if u.listLines < 1 {
		return nil, fmt.Errorf("upload: list lines %d must be positive", u.listLines)
	}
	if u.commitWait <= 0 {
		return nil, fmt.Errorf("upload: commit wait %v must be positive", u.commitWait)
	}

	return u, nil
}

// Program returns the name of the program the Uploader replaces.
func (u *Uploader) Program() string { return u.program }

// Upload replaces the program with prog, commits it to flash and lists the
// controller directory.
//
// It returns a *StepError wrapping ErrDeviceError when the controller rejects
// the select, an insert or the commit, and a *StepError wrapping the
// transport error when the session fails. The returned Result is never nil
// and holds the responses gathered up to the failure.
func (u *Uploader) Upload(ctx context.Context, prog Program) (*Result, error) {
	res := &Result{Program: u.program, StoredLines: -1}

	if len(prog) == 0 {
		return res, ErrEmptyProgram
	}

	run := &run{u: u, ctx: ctx, res: res}

	if _, err := run.exec(StepSelect, -1, 0, "SELECT "+u.program, true); err != nil {
		return res, err
	}

	resp, err := run.exec(StepCount, -1, 0, u.cmd("N"), false)
	if err != nil {
		return res, err
	}
	res.PreviousLines = parseCount(resp)

	for i := 0; i < res.PreviousLines; i++ {
		resp, err := run.exec(StepDelete, i, res.PreviousLines, u.cmd("0D"), false)
		if err != nil {
			return res, err
		}
		if IsDeviceError(resp) {
			res.DeleteError = resp
			u.logger.Debug("delete stopped", "program", u.program, "deleted", res.Deleted, "response", resp)

			break
		}
		res.Deleted++
	}

	for i, line := range prog {
		if _, err := run.exec(StepInsert, i, len(prog), u.cmd(strconv.Itoa(i)+"I,"+line), true); err != nil {
			return res, err
		}
		res.Inserted++
	}

	resp, err = run.exec(StepVerify, -1, 0, u.cmd("N"), false)
	if err != nil {
		return res, err
	}
	if n, err := strconv.Atoi(strings.TrimSpace(resp)); err == nil {
		res.StoredLines = n
	}

	res.Listing, err = run.exec(StepList, -1, 0, u.cmd("0,"+strconv.Itoa(u.listLines)+"L"), false)
	if err != nil {
		return res, err
	}

	if err := u.commit(run); err != nil {
		return res, err
	}

	res.Directory, err = run.exec(StepDir, -1, 0, "DIR", false)
	if err != nil {
		return res, err
	}

	return res, nil
}

// commit stores the program in flash. The controller prints its commit
// messages after the prompt of the commit command, so they are drained
// separately once the commit wait has elapsed.
func (u *Uploader) commit(run *run) error {
	cmd := u.cmd("M")

	resp, err := run.exec(StepCommit, -1, 0, cmd, true)
	if err != nil {
		return err
	}

	if !pool.Wait(u.commitWait, run.ctx.Done()) {
		return &StepError{Step: StepCommit, Line: -1, Command: cmd, Err: run.ctx.Err()}
	}

	delayed, err := u.ex.Drain(u.commitWait)
	if err != nil {
		return &StepError{Step: StepCommit, Line: -1, Command: cmd, Err: err}
	}

	run.res.CommitOutput = joinNonEmpty(resp, dropPrompt(delayed))

	return nil
}

func (u *Uploader) cmd(op string) string {
	return "!" + u.program + "," + op
}

// run carries the state of one Upload call.
type run struct {
	u   *Uploader
	ctx context.Context
	res *Result
}

// exec sends one command. When fatal is set, a device error in the response
// is returned as a *StepError.
func (r *run) exec(step Step, index, total int, cmd string, fatal bool) (string, error) {
	line := -1
	if step == StepInsert {
		line = index
	}

	if err := r.ctx.Err(); err != nil {
		return "", &StepError{Step: step, Line: line, Command: cmd, Err: err}
	}

	resp, err := r.u.ex.Exchange(cmd)
	if err != nil {
		return "", &StepError{Step: step, Line: line, Command: cmd, Err: err}
	}

	ev := Event{Step: step, Index: index, Total: total, Command: cmd, Response: resp}
	r.res.Events = append(r.res.Events, ev)
	if r.u.progress != nil {
		r.u.progress(ev)
	}
	r.u.logger.Debug("upload step", "step", string(step), "command", cmd, "response", resp)

	if fatal && IsDeviceError(resp) {
		return resp, &StepError{Step: step, Line: line, Command: cmd, Response: resp, Err: ErrDeviceError}
	}

	return resp, nil
}

// parseCount reads a line count response; anything that is not a number
// counts as an empty program.
func parseCount(resp string) int {
	n, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// dropPrompt removes prompt and blank lines from drained output.
func dropPrompt(text string) string {
	var kept []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == ">>" {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "\n")
}
