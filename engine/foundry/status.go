package foundry

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// State tags the two shapes a Status can take
type State int

const (
	// StateInactive means no world is loaded
	StateInactive State = iota
	// StateActive means a world is loaded and Status.Active is set
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// ActiveWorld is the payload of an active status
type ActiveWorld struct {
	World         string `json:"world"`
	System        string `json:"system"`
	SystemVersion string `json:"systemVersion"`
	Users         int    `json:"users"`
	Uptime        int64  `json:"uptime"`
}

// Status is a point-in-time read of the Foundry server.
// Active is non-nil exactly when State is StateActive.
type Status struct {
	State   State
	Version string
	Active  *ActiveWorld
}

// Inactive builds an inactive status
func Inactive(version string) Status {
	return Status{State: StateInactive, Version: version}
}

// Active builds an active status
func Active(version string, world ActiveWorld) Status {
	return Status{State: StateActive, Version: version, Active: &world}
}

// IsActive returns if a world is loaded
func (s Status) IsActive() bool {
	return s.State == StateActive && s.Active != nil
}

// Users returns the number of connected users, 0 when inactive
func (s Status) Users() int {
	if !s.IsActive() {
		return 0
	}
	return s.Active.Users
}

func (s Status) String() string {
	if s.IsActive() {
		return fmt.Sprintf("Status<active %s v%s users=%d uptime=%ds>", s.Active.World, s.Version, s.Active.Users, s.Active.Uptime)
	}
	return fmt.Sprintf("Status<inactive v%s>", s.Version)
}

const statusSchemaText = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["active", "version"],
	"properties": {
		"active": {"type": "boolean"},
		"version": {"type": "string"}
	},
	"if": {"properties": {"active": {"const": true}}},
	"then": {
		"required": ["world", "system", "systemVersion", "users", "uptime"],
		"properties": {
			"world": {"type": "string"},
			"system": {"type": "string"},
			"systemVersion": {"type": "string"},
			"users": {"type": "integer", "minimum": 0, "maximum": 2147483647},
			"uptime": {"type": "number", "minimum": 0, "maximum": 9007199254740991}
		}
	}
}`

var statusSchema = jsonschema.MustCompileString("status.schema.json", statusSchemaText)

type wireStatus struct {
	Active        bool    `json:"active"`
	Version       string  `json:"version"`
	World         string  `json:"world"`
	System        string  `json:"system"`
	SystemVersion string  `json:"systemVersion"`
	Users         int     `json:"users"`
	Uptime        float64 `json:"uptime"`
}

// ParseStatus decodes and validates a /api/status body.
// The active flag selects the variant; every field of the selected variant must be present.
func ParseStatus(body []byte) (Status, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Status{}, errors.Wrap(err, "decode status")
	}
	if err := statusSchema.Validate(doc); err != nil {
		return Status{}, errors.Wrap(err, "invalid status")
	}

	var ws wireStatus
	if err := json.Unmarshal(body, &ws); err != nil {
		return Status{}, errors.Wrap(err, "decode status")
	}
	if !ws.Active {
		return Inactive(ws.Version), nil
	}
	return Active(ws.Version, ActiveWorld{
		World:         ws.World,
		System:        ws.System,
		SystemVersion: ws.SystemVersion,
		Users:         ws.Users,
		Uptime:        int64(ws.Uptime),
	}), nil
}
