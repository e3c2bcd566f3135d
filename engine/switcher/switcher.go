// Package switcher validates and serializes world switch requests.
package switcher

import (
	"context"
	"sync"
	"time"

	"github.com/fdswitch/fdswitch/engine/common"
	"github.com/fdswitch/fdswitch/engine/config"
	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/envfile"
	"github.com/fdswitch/fdswitch/engine/foundry"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/fdswitch/fdswitch/engine/fsvar"
	"github.com/fdswitch/fdswitch/engine/opmon"
	"github.com/fdswitch/fdswitch/engine/restarter"
	"github.com/fdswitch/fdswitch/engine/worlds"
)

const (
	reasonStatus  = "could not read the server status"
	reasonPersist = "could not save the world selection"
	reasonRestart = "world selection saved but the service restart failed"
)

// Catalog lists the installed worlds
type Catalog interface {
	ListWorlds() []worlds.World
}

// AllowList holds the principals and roles allowed to switch worlds.
// An empty allow-list allows nobody.
type AllowList struct {
	Users common.StringSet
	Roles common.StringSet
}

// NewAllowList copies the allow-lists out of cfg
func NewAllowList(cfg config.AccessConfig) AllowList {
	return AllowList{
		Users: cfg.AllowedUserIDs.Copy(),
		Roles: cfg.AllowedRoleIDs.Copy(),
	}
}

// Allows returns if principal or any of roles is allowed
func (al AllowList) Allows(principal string, roles []string) bool {
	if principal != "" && al.Users.Contains(principal) {
		return true
	}
	return al.Roles.ContainsAny(roles)
}

// Options configures a Coordinator
type Options struct {
	Catalog        Catalog // nil reads DataPath
	Status         foundry.StatusGetter
	Restarter      restarter.Restarter
	Access         AllowList
	DataPath       string
	EnvPath        string
	Project        string
	Service        string
	RestartTimeout time.Duration
}

// Coordinator runs switch requests. At most one request saves and restarts at a time.
type Coordinator struct {
	catalog        Catalog
	status         foundry.StatusGetter
	restarter      restarter.Restarter
	access         AllowList
	envPath        string
	project        string
	service        string
	restartTimeout time.Duration

	switchLock sync.Mutex
}

// New creates a Coordinator
func New(opts Options) *Coordinator {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = worlds.Catalog{DataPath: opts.DataPath}
	}
	restartTimeout := opts.RestartTimeout
	if restartTimeout <= 0 {
		restartTimeout = consts.RESTART_TIMEOUT
	}
	return &Coordinator{
		catalog:        catalog,
		status:         opts.Status,
		restarter:      opts.Restarter,
		access:         AllowList{Users: opts.Access.Users.Copy(), Roles: opts.Access.Roles.Copy()},
		envPath:        opts.EnvPath,
		project:        opts.Project,
		service:        opts.Service,
		restartTimeout: restartTimeout,
	}
}

// Catalog returns the world catalog
func (c *Coordinator) Catalog() Catalog {
	return c.catalog
}

// EnvPath returns the path of the env file holding the selection
func (c *Coordinator) EnvPath() string {
	return c.envPath
}

// SwitchTo authorizes, validates and performs a switch. Once the selection is
// being saved the switch runs to completion even if ctx is canceled.
func (c *Coordinator) SwitchTo(ctx context.Context, req Request) (outcome Outcome) {
	op := opmon.StartOperation("switch")
	defer func() {
		c.logOutcome(req, outcome)
		fsvar.Switches.Add(outcome.Kind.String(), 1)
		if outcome.Kind == Failed {
			op.Fail(consts.RESTART_WARN_THRESHOLD)
		} else {
			op.Finish(consts.RESTART_WARN_THRESHOLD)
		}
	}()

	outcome.WorldID = req.WorldID
	if !c.access.Allows(req.PrincipalID, req.RoleIDs) {
		outcome.Kind = Denied
		return
	}

	world, ok := worlds.Find(c.catalog.ListWorlds(), req.WorldID)
	if !ok {
		outcome.Kind = NotFound
		return
	}

	status, err := c.status.GetStatus(ctx)
	if err != nil {
		return failed(outcome, reasonStatus, err)
	}
	if status.IsActive() && status.Users() > 0 {
		outcome.Kind = Blocked
		outcome.Users = status.Users()
		return
	}

	c.switchLock.Lock()
	defer c.switchLock.Unlock()
	fsvar.IsSwitching.Set(true)
	defer fsvar.IsSwitching.Set(false)

	fslog.Infof("User %s requested switch to world '%s' (%s)", req.PrincipalID, world.ID, world.Title)
	if err := envfile.SetWorld(c.envPath, world.ID); err != nil {
		return failed(outcome, reasonPersist, err)
	}

	rctx, cancel := context.WithTimeout(context.Background(), c.restartTimeout)
	defer cancel()
	if err := c.restarter.Restart(rctx, c.project, c.service); err != nil {
		return failed(outcome, reasonRestart, err)
	}

	outcome.Kind = Succeeded
	outcome.World = world
	return
}

func failed(outcome Outcome, reason string, err error) Outcome {
	outcome.Kind = Failed
	outcome.Reason = reason
	outcome.Err = err
	return outcome
}

func (c *Coordinator) logOutcome(req Request, outcome Outcome) {
	switch outcome.Kind {
	case Succeeded:
		fslog.Infof("Switch to '%s' by %s: %s", req.WorldID, req.PrincipalID, outcome.Message())
	case Failed:
		fslog.Errorf("Switch to '%s' by %s: %s", req.WorldID, req.PrincipalID, outcome.Message())
	default:
		fslog.Warnf("Switch to '%s' by %s: %s", req.WorldID, req.PrincipalID, outcome.Message())
	}
}
