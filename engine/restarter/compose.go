package restarter

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
)

type commandRunner func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Compose restarts a docker compose service with `up -d --force-recreate`
type Compose struct {
	Directory string
	Binary    string
	run       commandRunner
}

// NewCompose creates a Compose restarter for the project directory dir
func NewCompose(dir string) *Compose {
	if dir == "" {
		dir = "."
	}
	return &Compose{
		Directory: dir,
		Binary:    "docker",
		run:       runCommand,
	}
}

// Name returns compose
func (c *Compose) Name() string {
	return "compose"
}

// Args returns the command line used to recreate service
func (c *Compose) Args(project, service string) []string {
	return []string{
		"compose",
		"-p", project,
		"--project-directory", c.Directory,
		"up", "-d", "--force-recreate",
		service,
	}
}

// Restart recreates service in project and returns once compose exited
func (c *Compose) Restart(ctx context.Context, project, service string) error {
	args := c.Args(project, service)
	fslog.Infof("Restarting %s/%s: %s %s", project, service, c.Binary, strings.Join(args, " "))
	out, err := c.run(ctx, c.Directory, c.Binary, args...)
	if err != nil {
		out = bytes.TrimSpace(out)
		if len(out) > 0 {
			err = errors.Wrapf(err, "%s", out)
		}
		return restartError(project, service, err)
	}
	fslog.Infof("Restarted %s/%s", project, service)
	return nil
}
