package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mind-engage/codelab/internal/apperr"
)

const truncatedMarker = "\n[output truncated]\n"

// pipeGrace bounds how long Wait keeps reading output after the process
// exited or was killed. A grandchild that left the process group can hold
// the pipes open indefinitely.
const pipeGrace = 500 * time.Millisecond

// execute runs cmd with output captured into bounded buffers.
// A non-zero exit is reported in Result.ExitCode with a nil error; the
// returned error is for everything else (start failure, kill).
func execute(cmd *exec.Cmd, limit int) (Result, error) {
	outBuf := newCappedBuffer(limit)
	errBuf := newCappedBuffer(limit)
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf
	cmd.WaitDelay = pipeGrace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("sandbox: start %s: %v: %w", cmd.Path, err, apperr.ErrSandboxFailure)
	}
	waitErr := cmd.Wait()

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// exited on its own, a leftover child still held the pipes
		waitErr = nil
	case errors.As(waitErr, &exitErr) && exitErr.Exited():
		// ran to completion with a non-zero status
		waitErr = nil
	}
	return res, waitErr
}

// cappedBuffer keeps the first limit bytes written to it and swallows the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room >= len(p) {
		return b.buf.Write(p)
	}
	if room > 0 {
		b.buf.Write(p[:room])
	}
	b.truncated = true
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncatedMarker
	}
	return b.buf.String()
}
