package foundry

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestParseInactive(t *testing.T) {
	st, err := ParseStatus([]byte(`{"active": false, "version": "11.315"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, StateInactive, st.State)
	assert.Equal(t, "11.315", st.Version)
	assert.T(t, st.Active == nil, "inactive status must not carry a world")
	assert.Equal(t, 0, st.Users())
}

func TestParseActive(t *testing.T) {
	body := `{"active": true, "version": "11.315", "world": "w1", "system": "dnd5e",
		"systemVersion": "3.0.0", "users": 2, "uptime": 1234.7}`
	st, err := ParseStatus([]byte(body))
	assert.Equal(t, nil, err)
	assert.T(t, st.IsActive())
	assert.Equal(t, ActiveWorld{World: "w1", System: "dnd5e", SystemVersion: "3.0.0", Users: 2, Uptime: 1234}, *st.Active)
	assert.Equal(t, 2, st.Users())
}

func TestParseInactiveIgnoresWorldFields(t *testing.T) {
	st, err := ParseStatus([]byte(`{"active": false, "version": "11", "world": "w1", "users": 3}`))
	assert.Equal(t, nil, err)
	assert.T(t, !st.IsActive())
	assert.Equal(t, 0, st.Users())
}

func TestParseInvalid(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`[]`,
		`{}`,
		`{"version": "11"}`,
		`{"active": false}`,
		`{"active": "yes", "version": "11"}`,
		`{"active": true, "version": "11"}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "uptime": 1}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": "2", "uptime": 1}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": 1.5, "uptime": 1}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": -1, "uptime": 1}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": 1e20, "uptime": 1}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": 1, "uptime": 1e19}`,
		`{"active": true, "version": "11", "world": "w1", "system": "s", "systemVersion": "1", "users": 1, "uptime": 1e300}`,
	}
	for _, body := range bodies {
		_, err := ParseStatus([]byte(body))
		assert.T(t, err != nil, "should reject", body)
	}
}

func TestParseStatusLargestUptime(t *testing.T) {
	st, err := ParseStatus([]byte(`{"active": true, "version": "11", "world": "w1", "system": "s",
		"systemVersion": "1", "users": 1, "uptime": 9007199254740991}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, int64(9007199254740991), st.Active.Uptime)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Status<inactive v11>", Inactive("11").String())
	st := Active("11", ActiveWorld{World: "w1", Users: 1, Uptime: 5})
	assert.Equal(t, "Status<active w1 v11 users=1 uptime=5s>", st.String())
}
