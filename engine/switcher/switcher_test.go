package switcher

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/fdswitch/fdswitch/engine/common"
	"github.com/fdswitch/fdswitch/engine/envfile"
	"github.com/fdswitch/fdswitch/engine/foundry"
	"github.com/fdswitch/fdswitch/engine/worlds"
	"github.com/pkg/errors"
)

type staticCatalog []worlds.World

func (sc staticCatalog) ListWorlds() []worlds.World {
	return sc
}

type fakeStatus struct {
	status foundry.Status
	err    error
	hook   func(ctx context.Context)
}

func (f *fakeStatus) GetStatus(ctx context.Context) (foundry.Status, error) {
	if f.hook != nil {
		f.hook(ctx)
	}
	return f.status, f.err
}

type restartCall struct {
	project, service string
	selected         string
}

type fakeRestarter struct {
	sync.Mutex
	envPath string
	calls   []restartCall
	err     error
	inside  int32
	overlap int32
	delay   time.Duration
	ctxErr  error
}

func (f *fakeRestarter) Name() string {
	return "fake"
}

func (f *fakeRestarter) Restart(ctx context.Context, project, service string) error {
	if atomic.AddInt32(&f.inside, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inside, -1)

	selected, _, _ := envfile.GetWorld(f.envPath)
	time.Sleep(f.delay)

	f.Lock()
	defer f.Unlock()
	f.ctxErr = ctx.Err()
	f.calls = append(f.calls, restartCall{project, service, selected})
	return f.err
}

var testWorlds = staticCatalog{{ID: "w1", Title: "Alpha"}, {ID: "w2", Title: "Beta"}}

func newTestCoordinator(t *testing.T, status *fakeStatus) (*Coordinator, *fakeRestarter, string) {
	dir, err := ioutil.TempDir("", "switcher")
	assert.Equal(t, nil, err)
	envPath := filepath.Join(dir, "foundry.env")
	r := &fakeRestarter{envPath: envPath}
	c := New(Options{
		Catalog:   testWorlds,
		Status:    status,
		Restarter: r,
		Access:    AllowList{Users: common.ParseStringSet("admin"), Roles: common.ParseStringSet("gm")},
		EnvPath:   envPath,
		Project:   "foundry",
		Service:   "foundryvtt",
	})
	return c, r, envPath
}

func readFile(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	assert.Equal(t, nil, err)
	return string(data)
}

func TestAllowList(t *testing.T) {
	al := AllowList{Users: common.ParseStringSet("1,2"), Roles: common.ParseStringSet("10")}
	assert.T(t, al.Allows("1", nil))
	assert.T(t, al.Allows("3", []string{"9", "10"}))
	assert.T(t, !al.Allows("3", []string{"9"}))
	assert.T(t, !al.Allows("", nil))

	empty := AllowList{}
	assert.T(t, !empty.Allows("1", []string{"10"}), "empty allow-list allows nobody")
}

func TestSwitchSucceeds(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Inactive("11")})
	defer os.RemoveAll(filepath.Dir(envPath))

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w2", PrincipalID: "admin"})
	assert.Equal(t, Succeeded, outcome.Kind)
	assert.Equal(t, worlds.World{ID: "w2", Title: "Beta"}, outcome.World)
	assert.Equal(t, "Switched to world **Beta**.", outcome.Message())
	assert.Equal(t, "FOUNDRY_WORLD=w2\n", readFile(t, envPath))
	assert.Equal(t, []restartCall{{"foundry", "foundryvtt", "w2"}}, r.calls)
}

func TestSwitchByRole(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Active("11", foundry.ActiveWorld{World: "w1"})})
	defer os.RemoveAll(filepath.Dir(envPath))

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w1", PrincipalID: "someone", RoleIDs: []string{"player", "gm"}})
	assert.Equal(t, Succeeded, outcome.Kind)
	assert.Equal(t, 1, len(r.calls))
}

func TestSwitchDenied(t *testing.T) {
	status := &fakeStatus{status: foundry.Inactive("11")}
	called := false
	status.hook = func(ctx context.Context) { called = true }
	c, r, envPath := newTestCoordinator(t, status)
	defer os.RemoveAll(filepath.Dir(envPath))

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w1", PrincipalID: "mallory", RoleIDs: []string{"player"}})
	assert.Equal(t, Denied, outcome.Kind)
	assert.Equal(t, "You are not allowed to run this command.", outcome.Message())
	assert.T(t, !called, "status should not be read for a denied request")
	assert.Equal(t, 0, len(r.calls))
}

func TestSwitchNotFoundLeavesEnvFileUntouched(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Inactive("11")})
	defer os.RemoveAll(filepath.Dir(envPath))
	original := "A=1\nFOUNDRY_WORLD=w1\n"
	assert.Equal(t, nil, ioutil.WriteFile(envPath, []byte(original), 0644))

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w3", PrincipalID: "admin"})
	assert.Equal(t, NotFound, outcome.Kind)
	assert.Equal(t, "World 'w3' not found.", outcome.Message())
	assert.Equal(t, original, readFile(t, envPath))
	assert.Equal(t, 0, len(r.calls))
}

func TestSwitchBlockedRegardlessOfTarget(t *testing.T) {
	status := &fakeStatus{status: foundry.Active("11", foundry.ActiveWorld{World: "w1", Users: 3})}
	c, r, envPath := newTestCoordinator(t, status)
	defer os.RemoveAll(filepath.Dir(envPath))

	for _, id := range []string{"w1", "w2"} {
		outcome := c.SwitchTo(context.Background(), Request{WorldID: id, PrincipalID: "admin"})
		assert.Equal(t, Blocked, outcome.Kind)
		assert.Equal(t, 3, outcome.Users)
		assert.Equal(t, "Cannot switch worlds: there are 3 active user(s) in the current world.", outcome.Message())
	}
	assert.Equal(t, 0, len(r.calls))
	_, err := os.Stat(envPath)
	assert.T(t, os.IsNotExist(err), "env file should not be created")
}

func TestSwitchStatusFailure(t *testing.T) {
	statusErr := &foundry.StatusError{URL: "http://foundry/api/status", Err: errors.New("connection refused")}
	c, r, envPath := newTestCoordinator(t, &fakeStatus{err: statusErr})
	defer os.RemoveAll(filepath.Dir(envPath))

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w1", PrincipalID: "admin"})
	assert.Equal(t, Failed, outcome.Kind)
	assert.Equal(t, statusErr, outcome.Err)
	assert.Equal(t, 0, len(r.calls))
}

func TestSwitchPersistFailureSkipsRestart(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Inactive("11")})
	defer os.RemoveAll(filepath.Dir(envPath))
	c.envPath = filepath.Join(filepath.Dir(envPath), "missing", "foundry.env")

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w1", PrincipalID: "admin"})
	assert.Equal(t, Failed, outcome.Kind)
	_, ok := outcome.Err.(*envfile.IOError)
	assert.T(t, ok, "should fail with an IOError", outcome.Err)
	assert.Equal(t, 0, len(r.calls))
}

func TestSwitchRestartFailureKeepsSelection(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Inactive("11")})
	defer os.RemoveAll(filepath.Dir(envPath))
	r.err = errors.New("docker: command not found")

	outcome := c.SwitchTo(context.Background(), Request{WorldID: "w1", PrincipalID: "admin"})
	assert.Equal(t, Failed, outcome.Kind)
	assert.Equal(t, r.err, outcome.Err)
	assert.Equal(t, "Switch failed: world selection saved but the service restart failed: docker: command not found", outcome.Message())
	assert.Equal(t, "FOUNDRY_WORLD=w1\n", readFile(t, envPath))
}

func TestSwitchNotCanceledOnceStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	status := &fakeStatus{status: foundry.Inactive("11"), hook: func(context.Context) { cancel() }}
	c, r, envPath := newTestCoordinator(t, status)
	defer os.RemoveAll(filepath.Dir(envPath))

	outcome := c.SwitchTo(ctx, Request{WorldID: "w2", PrincipalID: "admin"})
	assert.Equal(t, Succeeded, outcome.Kind)
	assert.Equal(t, nil, r.ctxErr)
}

func TestConcurrentSwitchesAreSerialized(t *testing.T) {
	c, r, envPath := newTestCoordinator(t, &fakeStatus{status: foundry.Inactive("11")})
	defer os.RemoveAll(filepath.Dir(envPath))
	r.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i, id := range []string{"w1", "w2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			outcomes[i] = c.SwitchTo(context.Background(), Request{WorldID: id, PrincipalID: "admin"})
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, Succeeded, outcomes[0].Kind)
	assert.Equal(t, Succeeded, outcomes[1].Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&r.overlap))
	assert.Equal(t, 2, len(r.calls))

	// each restart saw the selection its own switch saved
	seen := []string{r.calls[0].selected, r.calls[1].selected}
	sort.Strings(seen)
	assert.Equal(t, []string{"w1", "w2"}, seen)
	assert.Equal(t, "FOUNDRY_WORLD="+r.calls[1].selected+"\n", readFile(t, envPath))
}

func TestDefaultCatalogReadsDataPath(t *testing.T) {
	dataPath, err := ioutil.TempDir("", "switcher-data")
	assert.Equal(t, nil, err)
	defer os.RemoveAll(dataPath)
	worldDir := filepath.Join(worlds.Dir(dataPath), "w9")
	assert.Equal(t, nil, os.MkdirAll(worldDir, 0755))
	assert.Equal(t, nil, ioutil.WriteFile(filepath.Join(worldDir, "world.json"), []byte(`{"title":"Nine"}`), 0644))

	c := New(Options{DataPath: dataPath})
	assert.Equal(t, []worlds.World{{ID: "w9", Title: "Nine"}}, c.Catalog().ListWorlds())
}

func TestOutcomeKindText(t *testing.T) {
	data, err := NotFound.MarshalText()
	assert.Equal(t, nil, err)
	assert.Equal(t, "not_found", string(data))

	var k OutcomeKind
	assert.Equal(t, nil, k.UnmarshalText([]byte("blocked")))
	assert.Equal(t, Blocked, k)
	assert.T(t, k.UnmarshalText([]byte("maybe")) != nil)
}

func TestZeroOutcomeIsNotDenied(t *testing.T) {
	var o Outcome
	assert.T(t, o.Kind != Denied, "zero outcome must not read as a denial")
	assert.T(t, !o.Kind.Valid())
	assert.T(t, Denied.Valid() && Failed.Valid())
	assert.Equal(t, "OutcomeKind(0)", o.Message())
	_, err := o.Kind.MarshalText()
	assert.T(t, err != nil, "zero kind should not encode")
}
