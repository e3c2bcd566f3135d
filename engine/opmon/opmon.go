package opmon

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/fslog"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	monitor = newMonitor()
)

func init() {
	if consts.OPMON_DUMP_INTERVAL > 0 {
		go func() {
			for {
				time.Sleep(consts.OPMON_DUMP_INTERVAL)
				Dump(os.Stderr)
			}
		}()
	}
}

// OpInfo is the accumulated statistics of one operation name
type OpInfo struct {
	Name          string
	Count         uint64
	Failures      uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// AvgDuration returns the average duration of the operation
func (info OpInfo) AvgDuration() time.Duration {
	if info.Count == 0 {
		return 0
	}
	return info.TotalDuration / time.Duration(info.Count)
}

type _Monitor struct {
	sync.Mutex
	opInfos map[string]*OpInfo
}

func newMonitor() *_Monitor {
	return &_Monitor{
		opInfos: map[string]*OpInfo{},
	}
}

func (monitor *_Monitor) record(opname string, duration time.Duration, failed bool) {
	monitor.Lock()
	info := monitor.opInfos[opname]
	if info == nil {
		info = &OpInfo{Name: opname}
		monitor.opInfos[opname] = info
	}
	info.Count++
	if failed {
		info.Failures++
	}
	info.TotalDuration += duration
	if duration > info.MaxDuration {
		info.MaxDuration = duration
	}
	monitor.Unlock()
}

// Snapshot returns the statistics of all operations sorted by name
func Snapshot() []OpInfo {
	monitor.Lock()
	infos := make([]OpInfo, 0, len(monitor.opInfos))
	for _, info := range monitor.opInfos {
		infos = append(infos, *info)
	}
	monitor.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Reset clears all recorded statistics
func Reset() {
	monitor.Lock()
	monitor.opInfos = map[string]*OpInfo{}
	monitor.Unlock()
}

// Dump writes the statistics in a table
func Dump(w io.Writer) {
	fmt.Fprint(w, "=====================================================================================\n")
	for _, info := range Snapshot() {
		fmt.Fprintf(w, "%-30sx%-10d FAIL %-6d AVG %-10s MAX %-10s\n", info.Name, info.Count, info.Failures, info.AvgDuration(), info.MaxDuration)
	}
}

// Operation is the type of operation to be monitored
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation creates a new operation
func StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) {
	op.finish(warnThreshold, false)
}

// Fail finishes the operation and records it as failed
func (op *Operation) Fail(warnThreshold time.Duration) {
	op.finish(warnThreshold, true)
}

func (op *Operation) finish(warnThreshold time.Duration, failed bool) {
	takeTime := time.Since(op.startTime)
	monitor.record(op.name, takeTime, failed)
	if takeTime >= warnThreshold {
		fslog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
	operationAllocPool.Put(op)
}
