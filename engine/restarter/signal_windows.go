package restarter

import (
	"context"
	"syscall"

	"github.com/pkg/errors"
)

// Signal is not supported on windows
type Signal struct {
	Sig syscall.Signal
}

// NewSignal always fails on windows
func NewSignal(signame string) (*Signal, error) {
	return nil, errors.New("signal restart mode is not supported on windows")
}

// Name returns signal
func (s *Signal) Name() string {
	return "signal"
}

// Restart always fails on windows
func (s *Signal) Restart(ctx context.Context, project, service string) error {
	return restartError(project, service, errors.New("signal restart mode is not supported on windows"))
}
