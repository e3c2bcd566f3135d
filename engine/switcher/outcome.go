package switcher

import (
	"fmt"

	"github.com/fdswitch/fdswitch/engine/worlds"
	"github.com/pkg/errors"
)

// OutcomeKind tags the result of a switch request
type OutcomeKind int

// the zero OutcomeKind is invalid so an unset Outcome never reads as a real result
const (
	// Denied means the principal is not on the allow-list
	Denied OutcomeKind = iota + 1
	// NotFound means no world has the requested id
	NotFound
	// Blocked means users are connected to the active world
	Blocked
	// Succeeded means the selection was saved and the service restarted
	Succeeded
	// Failed means the status read, the save or the restart failed
	Failed
)

var outcomeKindNames = map[OutcomeKind]string{
	Denied:    "denied",
	NotFound:  "not_found",
	Blocked:   "blocked",
	Succeeded: "succeeded",
	Failed:    "failed",
}

// Valid reports whether k is one of the defined kinds
func (k OutcomeKind) Valid() bool {
	_, ok := outcomeKindNames[k]
	return ok
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// MarshalText encodes the kind by name
func (k OutcomeKind) MarshalText() ([]byte, error) {
	name, ok := outcomeKindNames[k]
	if !ok {
		return nil, errors.Errorf("invalid outcome kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a kind name
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	for kind, name := range outcomeKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("invalid outcome kind %q", text)
}

// Request asks to switch the active world on behalf of a principal
type Request struct {
	WorldID     string
	PrincipalID string
	RoleIDs     []string
}

// Outcome is the result of SwitchTo. Which fields are set depends on Kind:
// WorldID always, World for Succeeded, Users for Blocked, Reason and Err for Failed.
type Outcome struct {
	Kind    OutcomeKind
	World   worlds.World
	WorldID string
	Users   int
	Reason  string
	Err     error
}

// Message renders the outcome for the requester
func (o Outcome) Message() string {
	switch o.Kind {
	case Denied:
		return "You are not allowed to run this command."
	case NotFound:
		return fmt.Sprintf("World '%s' not found.", o.WorldID)
	case Blocked:
		return fmt.Sprintf("Cannot switch worlds: there are %d active user(s) in the current world.", o.Users)
	case Succeeded:
		return fmt.Sprintf("Switched to world **%s**.", o.World.Title)
	case Failed:
		if o.Err != nil {
			return fmt.Sprintf("Switch failed: %s: %v", o.Reason, o.Err)
		}
		return fmt.Sprintf("Switch failed: %s", o.Reason)
	}
	return o.Kind.String()
}

func (o Outcome) String() string {
	return fmt.Sprintf("Outcome<%s %s>", o.Kind, o.WorldID)
}
