// SPDX-License-Identifier: MIT

package jobs

import "time"

// State is the lifecycle state of a synchronization pass.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateAborted
	StateError
	StateAlreadyRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateError:
		return "error"
	case StateAlreadyRunning:
		return "already_running"
	default:
		return "idle"
	}
}

// MarshalText renders the state name in JSON documents.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ExitCode returns the process exit status of a terminal state.
func (s State) ExitCode() int {
	switch s {
	case StateAlreadyRunning:
		return 1
	case StateAborted:
		return 2
	case StateError:
		return 3
	default:
		return 0
	}
}

// Message returns the user message of a terminal state and how long it
// should be shown.
func (s State) Message() (string, time.Duration) {
	switch s {
	case StateDone:
		return "Update finished.", 5 * time.Second
	case StateAlreadyRunning:
		return "Update already in progress!", 10 * time.Second
	case StateAborted:
		return "Update aborted!", 5 * time.Second
	case StateError:
		return "Error during update, update aborted!", 10 * time.Second
	default:
		return "", 0
	}
}
