//go:build unix

package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/codelab/internal/apperr"
)

// fakeDocker stands in for the docker CLI: `kill` appends the container name
// to a file next to the script, `run` echoes its argv one per line unless
// the snippet asks for a slow or broken daemon.
const fakeDocker = `#!/bin/sh
dir=$(dirname "$0")
if [ "$1" = "kill" ]; then
  echo "$2" >> "$dir/killed"
  exit 0
fi
case "$*" in
  *slow-snippet*) exec sleep 5 ;;
  *daemon-down*) echo "docker: Cannot connect to the Docker daemon at unix:///var/run/docker.sock." >&2; exit 125 ;;
  *exit-125*) echo "thread 'main' panicked" >&2; exit 125 ;;
  *compile-error*) echo "error[E0308]: mismatched types" >&2; exit 101 ;;
esac
for a in "$@"; do echo "$a"; done
`

func newFakeDocker(t *testing.T, opts ...Option) (*DockerExecutor, string) {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(bin, []byte(fakeDocker), 0o755))
	opts = append([]Option{WithBinary(bin)}, opts...)
	return NewDockerExecutor("rust-src", opts...), filepath.Join(dir, "killed")
}

func TestDockerExecutorArgs(t *testing.T) {
	d, _ := newFakeDocker(t)

	res, err := d.Run(context.Background(), "fn main() {}", 5*time.Second)
	require.NoError(t, err)
	require.True(t, res.Passed())

	args := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, args, 10)
	assert.Equal(t, []string{"run", "--rm", "--name"}, args[:3])
	assert.True(t, strings.HasPrefix(args[3], "codelab-"))
	assert.Equal(t, []string{"--memory=512m", "--pids-limit=64", "--cpus=1", "--network=none"}, args[4:8])
	assert.Equal(t, "rust-src", args[8])
	assert.Equal(t, "fn main() {}", args[9])
	assert.Zero(t, d.Running())
}

func TestDockerExecutorCompileErrorIsVerdict(t *testing.T) {
	d, _ := newFakeDocker(t)

	res, err := d.Run(context.Background(), "compile-error", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 101, res.ExitCode)
	assert.Contains(t, res.Stderr, "mismatched types")
}

func TestDockerExecutorDaemonFailure(t *testing.T) {
	d, _ := newFakeDocker(t)

	_, err := d.Run(context.Background(), "daemon-down", 5*time.Second)
	require.ErrorIs(t, err, apperr.ErrSandboxFailure)
	assert.NotErrorIs(t, err, apperr.ErrSandboxTimeout)
}

func TestDockerExecutorProgramExit125IsVerdict(t *testing.T) {
	d, _ := newFakeDocker(t)

	res, err := d.Run(context.Background(), "exit-125", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 125, res.ExitCode)
	assert.False(t, res.Passed())
	assert.Contains(t, res.Stderr, "panicked")
}

func TestDockerExecutorTimeoutKillsContainer(t *testing.T) {
	d, killed := newFakeDocker(t)

	_, err := d.Run(context.Background(), "slow-snippet", 200*time.Millisecond)
	require.ErrorIs(t, err, apperr.ErrSandboxTimeout)

	b, err := os.ReadFile(killed)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "codelab-"))
	assert.Zero(t, d.Running())
}

func TestDockerExecutorShutdownKillsLiveContainers(t *testing.T) {
	d, killed := newFakeDocker(t)

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(context.Background(), "slow-snippet", 2*time.Second)
		done <- err
	}()
	require.Eventually(t, func() bool { return d.Running() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Shutdown(context.Background()))
	b, err := os.ReadFile(killed)
	require.NoError(t, err)
	assert.Contains(t, string(b), "codelab-")

	<-done
	assert.Zero(t, d.Running())
}

func TestDockerExecutorShutdownKillsEveryContainer(t *testing.T) {
	d, killed := newFakeDocker(t)

	const runs = 3
	done := make(chan error, runs)
	for i := 0; i < runs; i++ {
		go func() {
			_, err := d.Run(context.Background(), "slow-snippet", 2*time.Second)
			done <- err
		}()
	}
	require.Eventually(t, func() bool { return d.Running() == runs }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Shutdown(context.Background()))
	b, err := os.ReadFile(killed)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(string(b)), runs)

	for i := 0; i < runs; i++ {
		<-done
	}
}

func TestConstraintsAllowNetwork(t *testing.T) {
	c := DefaultConstraints()
	c.AllowNetwork = true
	assert.NotContains(t, c.ToArgs(), "--network=none")
}
