package protocol

import (
	"fmt"
	"strings"
)

// State is the protocol phase a connection is in. It decides how packet
// ids are interpreted.
type State int

const (
	Handshaking State = iota
	Status
	Login
	Configuration
	Play
	Closed
)

var stateNames = [...]string{
	Handshaking:   "handshaking",
	Status:        "status",
	Login:         "login",
	Configuration: "configuration",
	Play:          "play",
	Closed:        "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState accepts a state name, case-insensitively. "handshake" and
// "config" are accepted as short forms.
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "handshake":
		return Handshaking, nil
	case "config":
		return Configuration, nil
	}
	for s, n := range stateNames {
		if n == name {
			return State(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// Handshake "next state" values.
const (
	NextStateStatus   int32 = 1
	NextStateLogin    int32 = 2
	NextStateTransfer int32 = 3
)

// StateAfterHandshake maps a handshake intent onto the state the
// connection continues in.
func StateAfterHandshake(nextState int32) (State, bool) {
	switch nextState {
	case NextStateStatus:
		return Status, true
	case NextStateLogin, NextStateTransfer:
		return Login, true
	default:
		return Handshaking, false
	}
}
