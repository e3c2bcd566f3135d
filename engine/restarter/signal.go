//go:build !windows
// +build !windows

package restarter

import (
	"context"
	"strings"
	"syscall"
	"time"

	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Signal restarts a supervised process by signaling it and waiting for it to exit.
// The service is the executable name; the project is only used in messages.
type Signal struct {
	Sig syscall.Signal

	list         processLister
	pollInterval time.Duration
}

// ParseSignal parses a signal name such as SIGTERM, TERM or sighup
func ParseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return unix.SIGTERM, nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, errors.Errorf("unknown signal: %s", name)
	}
	return sig, nil
}

// NewSignal creates a Signal restarter sending the named signal
func NewSignal(signame string) (*Signal, error) {
	sig, err := ParseSignal(signame)
	if err != nil {
		return nil, err
	}
	return &Signal{
		Sig:          sig,
		list:         listProcesses,
		pollInterval: consts.SIGNAL_RESTART_POLL_INTERVAL,
	}, nil
}

// Name returns signal
func (s *Signal) Name() string {
	return "signal"
}

// Restart signals every process named service and waits until all of them exited
func (s *Signal) Restart(ctx context.Context, project, service string) error {
	procs, err := s.list(ctx)
	if err != nil {
		return restartError(project, service, errors.Wrap(err, "list processes"))
	}

	var targets []process
	for _, p := range procs {
		if p.Executable() == service {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return restartError(project, service, errors.Errorf("no process named %s is running", service))
	}

	for _, p := range targets {
		fslog.Infof("Restarting %s/%s: send %s to pid=%d", project, service, unix.SignalName(s.Sig), p.Pid())
		if err := p.Signal(ctx, s.Sig); err != nil {
			return restartError(project, service, errors.Wrapf(err, "signal pid %d", p.Pid()))
		}
	}

	for _, p := range targets {
		if err := s.waitExit(ctx, p); err != nil {
			return restartError(project, service, err)
		}
	}
	fslog.Infof("Restarted %s/%s: %d process(es) exited", project, service, len(targets))
	return nil
}

func (s *Signal) waitExit(ctx context.Context, p process) error {
	for p.IsRunning(ctx) {
		timer := time.NewTimer(s.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return errors.Wrapf(ctx.Err(), "wait for pid %d to exit", p.Pid())
		}
	}
	return nil
}
