package presence

import (
	"encoding/json"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
)

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(Presence{Text: "No active world", Level: Idle})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"text":"No active world","level":"idle"}`, string(data))

	var p Presence
	assert.Equal(t, nil, json.Unmarshal([]byte(`{"text":"Foundry unreachable","level":"alert"}`), &p))
	assert.Equal(t, Presence{Text: "Foundry unreachable", Level: Alert}, p)

	assert.T(t, json.Unmarshal([]byte(`{"level":"busy"}`), &p) != nil, "unknown level")
	_, err = json.Marshal(Presence{Level: Level(7)})
	assert.T(t, err != nil, "invalid level should not encode")
}

type recordSink struct {
	got []Presence
	err error
}

func (s *recordSink) SetPresence(p Presence) error {
	s.got = append(s.got, p)
	return s.err
}

func TestMulti(t *testing.T) {
	a := &recordSink{err: errors.New("a failed")}
	b := &recordSink{err: errors.New("b failed")}
	c := &recordSink{}
	sink := Multi(a, nil, b, c)

	p := Presence{Text: "w1 (2 online)", Level: Online}
	err := sink.SetPresence(p)
	assert.Equal(t, a.err, err)
	assert.Equal(t, []Presence{p}, a.got)
	assert.Equal(t, []Presence{p}, b.got)
	assert.Equal(t, []Presence{p}, c.got)
}

func TestLogSink(t *testing.T) {
	s := NewLogSink()
	p := Presence{Text: "No active world", Level: Idle}
	assert.Equal(t, nil, s.SetPresence(p))
	assert.Equal(t, nil, s.SetPresence(p))
	assert.Equal(t, p, *s.last)
}
