package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/samber/oops"
)

type Executor interface {
	Execute(ctx context.Context, task ExecTask) (ExecResult, error)
}

type ExecTask struct {
	Command string
	Args    []string
	Cwd     string
	Env     []string
	Stdin   io.Reader

	// StreamStdio copies the child's output to os.Stdout as it is produced,
	// in addition to capturing it.
	StreamStdio bool
}

type ExecResult struct {
	Output   string
	ExitCode int
}

// lockedBuffer lets stdout and stderr share one buffer without interleaving
// partial writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Execute runs the task to completion. A non-zero exit is reported through
// ExecResult.ExitCode, as the negated signal number when the child was killed
// by a signal. Only a failure to start the command returns an error.
func (t ExecTask) Execute(ctx context.Context) (res ExecResult, err error) {
	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	cmd.Dir = t.Cwd
	cmd.Env = t.Env
	cmd.Stdin = t.Stdin

	output := &lockedBuffer{}
	var w io.Writer = output
	if t.StreamStdio {
		w = io.MultiWriter(output, os.Stdout)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err = cmd.Run()
	res.Output = output.String()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitCode(exitErr)
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		err = oops.Code("exec_failed").
			With("command", t.Command).
			Wrapf(err, "unable to run %s", t.Command)
	}
	return
}

func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return exitErr.ExitCode()
}

type processExecutor struct{}

// NewProcessExecutor returns an Executor that runs tasks as child processes.
func NewProcessExecutor() Executor {
	return processExecutor{}
}

func (processExecutor) Execute(ctx context.Context, task ExecTask) (ExecResult, error) {
	return task.Execute(ctx)
}
