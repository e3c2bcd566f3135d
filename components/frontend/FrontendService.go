// Package frontend serves the switch command and the presence feed over HTTP.
package frontend

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/envfile"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/fdswitch/fdswitch/engine/fsvar"
	"github.com/fdswitch/fdswitch/engine/opmon"
	"github.com/fdswitch/fdswitch/engine/presence"
	"github.com/fdswitch/fdswitch/engine/switcher"
	"github.com/fdswitch/fdswitch/engine/worlds"
	"github.com/pkg/errors"
)

const maxRequestBodySize = 64 << 10

// Switcher runs switch requests
type Switcher interface {
	SwitchTo(ctx context.Context, req switcher.Request) switcher.Outcome
}

// PresenceSource provides the latest presence
type PresenceSource interface {
	Last() (presence.Presence, bool)
}

// Options configures a FrontendService
type Options struct {
	Addr     string
	Switcher Switcher
	Catalog  switcher.Catalog
	EnvPath  string
	Presence PresenceSource // optional
	Hub      *presence.Hub  // optional, enables /v1/ws
}

// FrontendService is the HTTP front-end of the switch coordinator
type FrontendService struct {
	opts       Options
	httpServer *http.Server

	readyOnce sync.Once
	ready     chan struct{}
	addrLock  sync.RWMutex
	addr      net.Addr
}

// NewFrontendService creates a FrontendService
func NewFrontendService(opts Options) *FrontendService {
	fs := &FrontendService{
		opts:  opts,
		ready: make(chan struct{}),
	}
	fs.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           fs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return fs
}

// Handler returns the routes of the front-end
func (fs *FrontendService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathSwitch, fs.handleSwitch)
	mux.HandleFunc(PathWorlds, fs.handleWorlds)
	mux.HandleFunc(PathStatus, fs.handleStatus)
	if fs.opts.Hub != nil {
		mux.Handle(PathWS, fs.opts.Hub.Handler())
	}
	mux.HandleFunc(PathHealth, func(rw http.ResponseWriter, r *http.Request) {
		if !fsvar.IsReady.Value() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte("starting"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.HandleFunc(PathMetrics, handleMetrics)
	mux.Handle(PathVars, expvar.Handler())
	return mux
}

// Ready is closed once the listener is bound
func (fs *FrontendService) Ready() <-chan struct{} {
	return fs.ready
}

// Addr returns the bound address, nil before Ready
func (fs *FrontendService) Addr() net.Addr {
	fs.addrLock.RLock()
	defer fs.addrLock.RUnlock()
	return fs.addr
}

// ListenAndServe binds the listener and serves until Shutdown
func (fs *FrontendService) ListenAndServe() error {
	ln, err := net.Listen("tcp", fs.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", fs.opts.Addr)
	}
	return fs.Serve(ln)
}

// Serve serves on ln until Shutdown
func (fs *FrontendService) Serve(ln net.Listener) error {
	fs.addrLock.Lock()
	fs.addr = ln.Addr()
	fs.addrLock.Unlock()
	fs.readyOnce.Do(func() { close(fs.ready) })

	fslog.Infof("Front-end listening on http://%s", ln.Addr())
	err := fs.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for the running ones
func (fs *FrontendService) Shutdown(ctx context.Context) error {
	fsvar.IsReady.Set(false)
	if fs.opts.Hub != nil {
		fs.opts.Hub.Close()
	}
	return fs.httpServer.Shutdown(ctx)
}

func outcomeStatusCode(kind switcher.OutcomeKind) int {
	switch kind {
	case switcher.Succeeded:
		return http.StatusOK
	case switcher.Denied:
		return http.StatusForbidden
	case switcher.NotFound:
		return http.StatusNotFound
	case switcher.Blocked:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (fs *FrontendService) handleSwitch(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.Header().Set("Allow", http.MethodPost)
		writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SwitchRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.World == "" {
		writeError(rw, http.StatusBadRequest, "world is required")
		return
	}

	outcome := fs.opts.Switcher.SwitchTo(r.Context(), switcher.Request{
		WorldID:     req.World,
		PrincipalID: req.UserID,
		RoleIDs:     req.RoleIDs,
	})

	resp := SwitchResponse{
		Outcome: outcome.Kind,
		Message: outcome.Message(),
		Users:   outcome.Users,
	}
	if outcome.Kind == switcher.Succeeded {
		w := outcome.World
		resp.World = &w
	}
	writeJSON(rw, outcomeStatusCode(outcome.Kind), resp)
}

func (fs *FrontendService) handleWorlds(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.Header().Set("Allow", http.MethodGet)
		writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query().Get("q")
	list := worlds.Search(fs.opts.Catalog.ListWorlds(), query, consts.AUTOCOMPLETE_MAX_CHOICES)
	writeJSON(rw, http.StatusOK, WorldsResponse{Worlds: list})
}

func (fs *FrontendService) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.Header().Set("Allow", http.MethodGet)
		writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var resp StatusResponse
	if fs.opts.Presence != nil {
		if p, ok := fs.opts.Presence.Last(); ok {
			resp.Presence = &p
		}
	}
	selected, ok, err := envfile.GetWorld(fs.opts.EnvPath)
	if err != nil {
		fslog.Errorf("Read selection from %s failed: %v", fs.opts.EnvPath, err)
		writeError(rw, http.StatusInternalServerError, "could not read the world selection")
		return
	}
	resp.Selected, resp.HasFile = selected, ok
	writeJSON(rw, http.StatusOK, resp)
}

func handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	ops := opmon.Snapshot()

	fmt.Fprintf(rw, "# HELP fdswitch_operations_total Completed operations.\n")
	fmt.Fprintf(rw, "# TYPE fdswitch_operations_total counter\n")
	for _, op := range ops {
		fmt.Fprintf(rw, "fdswitch_operations_total{op=%q} %d\n", op.Name, op.Count)
	}

	fmt.Fprintf(rw, "# HELP fdswitch_operation_failures_total Failed operations.\n")
	fmt.Fprintf(rw, "# TYPE fdswitch_operation_failures_total counter\n")
	for _, op := range ops {
		fmt.Fprintf(rw, "fdswitch_operation_failures_total{op=%q} %d\n", op.Name, op.Failures)
	}

	fmt.Fprintf(rw, "# HELP fdswitch_operation_duration_seconds_sum Total time spent per operation.\n")
	fmt.Fprintf(rw, "# TYPE fdswitch_operation_duration_seconds_sum counter\n")
	for _, op := range ops {
		fmt.Fprintf(rw, "fdswitch_operation_duration_seconds_sum{op=%q} %.6f\n", op.Name, op.TotalDuration.Seconds())
	}

	fmt.Fprintf(rw, "# HELP fdswitch_operation_duration_seconds_max Longest operation.\n")
	fmt.Fprintf(rw, "# TYPE fdswitch_operation_duration_seconds_max gauge\n")
	for _, op := range ops {
		fmt.Fprintf(rw, "fdswitch_operation_duration_seconds_max{op=%q} %.6f\n", op.Name, op.MaxDuration.Seconds())
	}
}

func writeJSON(rw http.ResponseWriter, code int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		fslog.Warnf("Write response failed: %v", err)
	}
}

func writeError(rw http.ResponseWriter, code int, msg string) {
	writeJSON(rw, code, ErrorResponse{Error: msg})
}
