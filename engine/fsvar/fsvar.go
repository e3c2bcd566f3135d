// Package fsvar publishes process state through expvar (/debug/vars).
package fsvar

import "expvar"

// Bool is a boolean expvar
type Bool struct {
	val *expvar.Int
}

// NewBool creates and publishes a Bool under name
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the current value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	// IsReady is set once the front-end listens and the poller runs
	IsReady = NewBool("fdswitch.ready")
	// IsSwitching is set while a switch saves and restarts
	IsSwitching = NewBool("fdswitch.switching")
	// Switches counts switch requests by outcome
	Switches = expvar.NewMap("fdswitch.switches")
)
