// Package restarter recreates the hosted service so it picks up a new world selection.
package restarter

import (
	"context"
	"fmt"

	"github.com/fdswitch/fdswitch/engine/config"
	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/opmon"
	"github.com/pkg/errors"
)

// Restarter forces the service to be recreated and waits until the runtime accepted the request
type Restarter interface {
	Restart(ctx context.Context, project, service string) error
	Name() string
}

// RestartError is returned when the runtime rejects or fails a restart
type RestartError struct {
	Project string
	Service string
	Err     error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restart %s/%s: %v", e.Project, e.Service, e.Err)
}

// Cause returns the underlying error
func (e *RestartError) Cause() error {
	return e.Err
}

// New creates the restarter selected by cfg.Mode
func New(cfg config.RestartConfig) (Restarter, error) {
	var r Restarter
	var err error
	switch cfg.Mode {
	case config.RestartModeCompose, "":
		r = NewCompose(cfg.Directory)
	case config.RestartModeECS:
		r = NewECS(cfg.Region)
	case config.RestartModeSignal:
		r, err = NewSignal(cfg.Signal)
	default:
		err = errors.Errorf("unknown restart mode: %s", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return Monitored(r), nil
}

type monitored struct {
	Restarter
}

// Monitored records each restart of r as opmon operation restart.<name>
func Monitored(r Restarter) Restarter {
	if _, ok := r.(monitored); ok {
		return r
	}
	return monitored{r}
}

func (m monitored) Restart(ctx context.Context, project, service string) error {
	op := opmon.StartOperation("restart." + m.Name())
	err := m.Restarter.Restart(ctx, project, service)
	if err != nil {
		op.Fail(consts.RESTART_WARN_THRESHOLD)
	} else {
		op.Finish(consts.RESTART_WARN_THRESHOLD)
	}
	return err
}

func restartError(project, service string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*RestartError); ok {
		return err
	}
	return &RestartError{Project: project, Service: service, Err: err}
}
