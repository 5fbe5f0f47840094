package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

// dockerFailedExit is the status `docker run` uses for its own errors
// (daemon unreachable, image missing). A program in the container may exit
// with 125 too, so the status only counts as a docker failure when stderr
// also carries the CLI's "docker: " prefix.
const dockerFailedExit = 125

const shutdownParallelism = 8

// DockerExecutor runs each snippet in a fresh container of image. The image
// is expected to compile and run the source it receives as its argument.
type DockerExecutor struct {
	image string
	opts  options
	live  *xsync.MapOf[string, time.Time] // container name -> started
}

func NewDockerExecutor(image string, opts ...Option) *DockerExecutor {
	return &DockerExecutor{
		image: image,
		opts:  buildOptions(opts),
		live:  xsync.NewMapOf[string, time.Time](),
	}
}

func (d *DockerExecutor) Run(ctx context.Context, snippet string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = d.opts.timeout
	}
	name := "codelab-" + uuid.NewString()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.opts.bin, d.runArgs(name, snippet)...)
	setProcessGroup(cmd)
	// killing the CLI client leaves the container running
	cmd.Cancel = func() error {
		d.kill(name)
		return killProcessGroup(cmd)
	}

	d.live.Store(name, time.Now())
	res, err := execute(cmd, d.opts.maxOutput)
	d.live.Delete(name)

	if err == nil && res.ExitCode == dockerFailedExit && isDockerCLIError(res.Stderr) {
		err = fmt.Errorf("docker run: %s", res.Stderr)
	}
	res, err = classify(ctx, runCtx, res, err)
	d.opts.log.Debug("sandbox run",
		slog.String("driver", "docker"),
		slog.String("container", name),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("took", res.Duration),
		slog.Any("err", err),
	)
	return res, err
}

func (d *DockerExecutor) runArgs(name, snippet string) []string {
	args := []string{"run", "--rm", "--name", name}
	args = append(args, d.opts.constraints.ToArgs()...)
	return append(args, d.image, snippet)
}

func isDockerCLIError(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(line, "docker: ") {
			return true
		}
	}
	return false
}

// Running reports how many containers this executor currently owns.
func (d *DockerExecutor) Running() int { return d.live.Size() }

// Shutdown kills every container still owned by this executor, a few at a
// time.
func (d *DockerExecutor) Shutdown(ctx context.Context) error {
	var (
		g errgroup.Group
		n atomic.Int64
	)
	g.SetLimit(shutdownParallelism)
	d.live.Range(func(name string, _ time.Time) bool {
		if ctx.Err() != nil {
			return false
		}
		g.Go(func() error {
			d.kill(name)
			n.Add(1)
			return nil
		})
		return true
	})
	_ = g.Wait()
	if k := n.Load(); k > 0 {
		d.opts.log.Info("sandbox shutdown", slog.Int64("killed", k))
	}
	return ctx.Err()
}

func (d *DockerExecutor) kill(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, d.opts.bin, "kill", name).CombinedOutput()
	if err != nil {
		// already gone is the common case
		d.opts.log.Debug("docker kill", slog.String("container", name), slog.String("output", string(out)), slog.Any("err", err))
	}
}
