// Package pipeline runs stages of external tools connected by OS pipes.
//
// No shell is involved: each process is spawned directly with its argument
// vector, stdout of one process is wired to stdin of the next, and stderr of
// every process goes to the invocation's log file. Every process's exit
// status is checked, not only the last one in a chain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// Runner implements ports.StageRunner.
type Runner struct {
	tools  ports.ToolLocator
	logger ports.Logger
}

// NewRunner returns a Runner resolving tools through locator.
func NewRunner(locator ports.ToolLocator, logger ports.Logger) *Runner {
	return &Runner{tools: locator, logger: logger}
}

// Run executes the invocation's stages in order. On the first failure the
// files every stage declared in Produces are removed and the error is
// returned; the log file is kept.
func (r *Runner) Run(ctx context.Context, inv domain.Invocation) error {
	if len(inv.Stages) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(inv.LogPath), domain.DirectoryPermissions); err != nil {
		return err
	}
	logFile, err := os.OpenFile(inv.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.FilePermissions)
	if err != nil {
		return fmt.Errorf("open stage log: %w", err)
	}
	defer logFile.Close()

	var produced []string
	for _, st := range inv.Stages {
		produced = append(produced, st.Produces...)
	}

	for _, st := range inv.Stages {
		start := time.Now()
		if err := r.runStage(ctx, inv, st, logFile); err != nil {
			filesystem.RemoveQuietly(produced...)
			r.debug("stage failed", map[string]interface{}{
				"invocation": inv.Name,
				"stage":      st.Name,
				"log":        inv.LogPath,
			})
			return err
		}
		r.debug("stage finished", map[string]interface{}{
			"invocation":  inv.Name,
			"stage":       st.Name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, inv domain.Invocation, st domain.Stage, logFile *os.File) error {
	if len(st.Chain) == 0 {
		return fmt.Errorf("stage %s has no processes", st.Name)
	}

	cmds := make([]*exec.Cmd, len(st.Chain))
	for i, proc := range st.Chain {
		path, err := r.tools.Resolve(proc.Tool)
		if err != nil {
			return fmt.Errorf("%s: %w", st.Name, err)
		}
		cmds[i] = newCmd(ctx, path, proc.Args, logFile)
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	// Pipes between neighbours.
	var parentEnds []*os.File
	for i := 1; i < len(cmds); i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			closeAll(parentEnds)
			return err
		}
		cmds[i-1].Stdout = pw
		cmds[i].Stdin = pr
		parentEnds = append(parentEnds, pr, pw)
	}

	first, last := cmds[0], cmds[len(cmds)-1]
	var stdin io.WriteCloser
	var stdout io.ReadCloser
	switch {
	case st.Input.File != "":
		f, err := os.Open(st.Input.File)
		if err != nil {
			closeAll(parentEnds)
			return fmt.Errorf("%s: %w", st.Name, err)
		}
		closers = append(closers, f)
		first.Stdin = f
	case st.Input.Generate != nil:
		w, err := first.StdinPipe()
		if err != nil {
			closeAll(parentEnds)
			return err
		}
		stdin = w
	}
	switch {
	case st.Output.File != "":
		f, err := os.OpenFile(st.Output.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.FilePermissions)
		if err != nil {
			closeAll(parentEnds)
			return fmt.Errorf("%s: %w", st.Name, err)
		}
		closers = append(closers, f)
		last.Stdout = f
	case st.Output.Consume != nil:
		rd, err := last.StdoutPipe()
		if err != nil {
			closeAll(parentEnds)
			return err
		}
		stdout = rd
	}

	for _, proc := range st.Chain {
		fmt.Fprintf(logFile, "# %s\n", commandLine(proc))
	}

	started := 0
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			closeAll(parentEnds)
			for _, c := range cmds[:started] {
				killGroup(c)
				_ = c.Wait()
			}
			return fmt.Errorf("%s: start %s: %w", st.Name, st.Chain[i].Tool, err)
		}
		started++
	}
	// The children hold their own copies of the pipe ends.
	closeAll(parentEnds)

	var g errgroup.Group
	if stdin != nil {
		g.Go(func() error {
			err := st.Input.Generate(stdin)
			if cerr := stdin.Close(); err == nil {
				err = cerr
			}
			return err
		})
	}
	if stdout != nil {
		g.Go(func() error {
			err := st.Output.Consume(stdout)
			// Drain so the writer never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, stdout)
			return err
		})
	}
	ioErr := g.Wait()

	waitErrs := make([]error, len(cmds))
	for i, cmd := range cmds {
		waitErrs[i] = cmd.Wait()
	}
	var failure error
	if i := culprit(waitErrs); i >= 0 {
		failure = r.processError(st, st.Chain[i], inv.LogPath, waitErrs[i])
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", st.Name, ctx.Err())
	}
	if failure != nil {
		return failure
	}
	if ioErr != nil {
		return fmt.Errorf("%s: %w", st.Name, ioErr)
	}
	return nil
}

// culprit picks the process to blame for a failed chain: the first one that
// exited with a non-zero code, else the first one killed by a signal. A
// writer killed by SIGPIPE is only a symptom of its reader failing.
func culprit(errs []error) int {
	signalled := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() < 0 {
			if signalled < 0 {
				signalled = i
			}
			continue
		}
		return i
	}
	return signalled
}

func (r *Runner) processError(st domain.Stage, proc domain.Process, logPath string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &domain.ToolFailureError{
			Stage:    st.Name,
			Tool:     proc.Tool,
			ExitCode: exitErr.ExitCode(),
			LogPath:  logPath,
		}
	}
	return fmt.Errorf("%s: %s: %w", st.Name, proc.Tool, err)
}

func (r *Runner) debug(msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, fields)
	}
}

// newCmd builds a command in its own process group so cancellation can
// kill the whole tree.
func newCmd(ctx context.Context, path string, args []string, stderr io.Writer) *exec.Cmd {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		killGroup(cmd)
		return nil
	}
	return cmd
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func commandLine(proc domain.Process) string {
	parts := make([]string, 0, len(proc.Args)+1)
	parts = append(parts, proc.Tool)
	parts = append(parts, proc.Args...)
	return strings.Join(parts, " ")
}

var _ ports.StageRunner = (*Runner)(nil)
