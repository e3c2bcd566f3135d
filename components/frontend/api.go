package frontend

import (
	"github.com/fdswitch/fdswitch/engine/presence"
	"github.com/fdswitch/fdswitch/engine/switcher"
	"github.com/fdswitch/fdswitch/engine/worlds"
)

// Route paths
const (
	PathSwitch  = "/v1/switch"
	PathWorlds  = "/v1/worlds"
	PathStatus  = "/v1/status"
	PathWS      = "/v1/ws"
	PathHealth  = "/healthz"
	PathMetrics = "/metrics"
	PathVars    = "/debug/vars"
)

// SwitchRequest is the body of POST /v1/switch
type SwitchRequest struct {
	World   string   `json:"world"`
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids,omitempty"`
}

// SwitchResponse is the body answering POST /v1/switch
type SwitchResponse struct {
	Outcome switcher.OutcomeKind `json:"outcome"`
	Message string               `json:"message"`
	World   *worlds.World        `json:"world,omitempty"`
	Users   int                  `json:"users,omitempty"`
}

// WorldsResponse is the body answering GET /v1/worlds
type WorldsResponse struct {
	Worlds []worlds.World `json:"worlds"`
}

// StatusResponse is the body answering GET /v1/status
type StatusResponse struct {
	Presence *presence.Presence `json:"presence"` // nil before the first poll
	Selected string             `json:"selected"`
	HasFile  bool               `json:"has_selection"`
}

// ErrorResponse is the body of a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
}
