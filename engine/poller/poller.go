// Package poller periodically reads the Foundry status and publishes it as presence.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/foundry"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/fdswitch/fdswitch/engine/fsutils"
	"github.com/fdswitch/fdswitch/engine/presence"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
)

const (
	noActiveWorldText = "No active world"
	unreachableText   = "Foundry unreachable"
)

// Derive maps a status to the presence shown to observers
func Derive(status foundry.Status) presence.Presence {
	if status.IsActive() {
		return presence.Presence{
			Text:  fmt.Sprintf("%s (%d online)", status.Active.World, status.Active.Users),
			Level: presence.Online,
		}
	}
	return presence.Presence{Text: noActiveWorldText, Level: presence.Idle}
}

// Unreachable is the presence shown when the status could not be read
func Unreachable() presence.Presence {
	return presence.Presence{Text: unreachableText, Level: presence.Alert}
}

// Poller reads the status every interval and pushes the derived presence to a sink
type Poller struct {
	client   foundry.StatusGetter
	sink     presence.Sink
	interval time.Duration

	startOnce   sync.Once
	started     xnsyncutil.AtomicBool
	terminating xnsyncutil.AtomicBool
	terminated  *xnsyncutil.OneTimeCond
	cancel      context.CancelFunc

	lastLock sync.RWMutex
	last     presence.Presence
	hasLast  bool
}

// New creates a Poller. interval <= 0 uses the default poll interval.
func New(client foundry.StatusGetter, sink presence.Sink, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = consts.DEFAULT_POLL_INTERVAL
	}
	return &Poller{
		client:     client,
		sink:       sink,
		interval:   interval,
		terminated: xnsyncutil.NewOneTimeCond(),
	}
}

// Interval returns the poll interval
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the poll loop. Only the first call has any effect.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		fslog.Infof("Status poller started, interval %s", p.interval)
		go p.loop(ctx)
	})
}

// Stop cancels the loop and waits for it to exit. A tick in progress is finished first.
func (p *Poller) Stop() {
	p.terminating.Store(true)
	if !p.started.Load() {
		return
	}
	p.cancel()
	p.terminated.Wait()
}

// Last returns the latest presence pushed, false before the first tick
func (p *Poller) Last() (presence.Presence, bool) {
	p.lastLock.RLock()
	defer p.lastLock.RUnlock()
	return p.last, p.hasLast
}

func (p *Poller) loop(ctx context.Context) {
	defer func() {
		fslog.Infof("Status poller stopped")
		p.terminated.Signal()
	}()

	for !p.terminating.Load() {
		fsutils.RunPanicless(p.tick)

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (p *Poller) tick() {
	// not the loop context: shutdown never cuts a status call short
	status, err := p.client.GetStatus(context.Background())
	var pres presence.Presence
	if err != nil {
		fslog.Warnf("Status poll failed: %v", err)
		pres = Unreachable()
	} else {
		if consts.DEBUG_STATUS {
			fslog.Debugf("Status poll: %s", status)
		}
		pres = Derive(status)
	}

	p.lastLock.Lock()
	p.last, p.hasLast = pres, true
	p.lastLock.Unlock()

	fsutils.RunPanicless(func() {
		if err := p.sink.SetPresence(pres); err != nil {
			fslog.Errorf("Set presence %s failed: %v", pres, err)
		}
	})
}
