package fsutils

import "github.com/fdswitch/fdswitch/engine/fslog"

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			fslog.TraceError("%v panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}
