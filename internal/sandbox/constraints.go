package sandbox

import (
	"fmt"

	"github.com/mind-engage/codelab/internal/config"
)

type Constraints struct {
	MemoryMB     int
	MaxProcesses int
	CPUs         string
	AllowNetwork bool
}

func DefaultConstraints() Constraints {
	return Constraints{
		MemoryMB:     512,
		MaxProcesses: 64,
		CPUs:         "1",
	}
}

func ConstraintsFrom(cfg config.Sandbox) Constraints {
	c := DefaultConstraints()
	if cfg.MemoryMB > 0 {
		c.MemoryMB = cfg.MemoryMB
	}
	if cfg.Pids > 0 {
		c.MaxProcesses = cfg.Pids
	}
	if cfg.CPUs != "" {
		c.CPUs = cfg.CPUs
	}
	c.AllowNetwork = cfg.AllowNetwork
	return c
}

// ToArgs renders the constraints as `docker run` flags.
func (c Constraints) ToArgs() []string {
	args := []string{
		c.MemLimArg(),
		c.PidsLimArg(),
		c.CPUsArg(),
	}
	if !c.AllowNetwork {
		args = append(args, "--network=none")
	}
	return args
}

func (c Constraints) MemLimArg() string {
	return fmt.Sprintf("--memory=%dm", c.MemoryMB)
}

func (c Constraints) PidsLimArg() string {
	return fmt.Sprintf("--pids-limit=%d", c.MaxProcesses)
}

func (c Constraints) CPUsArg() string {
	return "--cpus=" + c.CPUs
}
