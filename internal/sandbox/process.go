package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mind-engage/codelab/internal/apperr"
)

// ProcessExecutor runs a local command with the snippet appended as its last
// argument, e.g. ["sh", "-c"] or ["python3", "-c"]. It provides no isolation
// beyond a throwaway working directory and an empty environment, so it is
// meant for development and tests.
type ProcessExecutor struct {
	command []string
	opts    options
}

func NewProcessExecutor(command []string, opts ...Option) (*ProcessExecutor, error) {
	if len(command) == 0 {
		return nil, errors.New("sandbox: process executor needs a command")
	}
	return &ProcessExecutor{
		command: append([]string(nil), command...),
		opts:    buildOptions(opts),
	}, nil
}

func (p *ProcessExecutor) Run(ctx context.Context, snippet string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = p.opts.timeout
	}
	dir, err := os.MkdirTemp("", "codelab-run-*")
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: workdir: %v: %w", err, apperr.ErrSandboxFailure)
	}
	defer os.RemoveAll(dir)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), p.command[1:]...), snippet)
	cmd := exec.CommandContext(runCtx, p.command[0], args...)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }

	res, err := execute(cmd, p.opts.maxOutput)
	res, err = classify(ctx, runCtx, res, err)
	p.opts.log.Debug("sandbox run",
		slog.String("driver", "process"),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("took", res.Duration),
		slog.Any("err", err),
	)
	return res, err
}
