package opmon

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bmizerany/assert"
)

func TestOperation(t *testing.T) {
	Reset()
	StartOperation("b.op").Finish(time.Hour)
	StartOperation("a.op").Finish(time.Hour)
	StartOperation("a.op").Fail(time.Hour)

	infos := Snapshot()
	assert.Equal(t, 2, len(infos))
	assert.Equal(t, "a.op", infos[0].Name)
	assert.Equal(t, uint64(2), infos[0].Count)
	assert.Equal(t, uint64(1), infos[0].Failures)
	assert.Equal(t, "b.op", infos[1].Name)
	assert.Equal(t, uint64(0), infos[1].Failures)
	assert.T(t, infos[0].MaxDuration >= infos[0].AvgDuration())

	var buf bytes.Buffer
	Dump(&buf)
	assert.T(t, strings.Contains(buf.String(), "a.op"), buf.String())

	Reset()
	assert.Equal(t, 0, len(Snapshot()))
}
