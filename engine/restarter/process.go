//go:build !windows
// +build !windows

package restarter

import (
	"context"
	"syscall"

	psutil_process "github.com/shirou/gopsutil/process"
)

type process interface {
	Pid() int32
	Executable() string
	Signal(ctx context.Context, sig syscall.Signal) error
	IsRunning(ctx context.Context) bool
}

type psProcess struct {
	*psutil_process.Process
	name string
}

func (p psProcess) Pid() int32 {
	return p.Process.Pid
}

func (p psProcess) Executable() string {
	return p.name
}

func (p psProcess) Signal(ctx context.Context, sig syscall.Signal) error {
	return p.Process.SendSignalWithContext(ctx, sig)
}

func (p psProcess) IsRunning(ctx context.Context) bool {
	running, err := p.Process.IsRunningWithContext(ctx)
	return err == nil && running
}

type processLister func(ctx context.Context) ([]process, error)

func listProcesses(ctx context.Context) ([]process, error) {
	ps, err := psutil_process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	procs := make([]process, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		procs = append(procs, psProcess{Process: p, name: name})
	}
	return procs, nil
}
