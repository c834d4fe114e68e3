// Package session tracks one conversation as an explicit value. Callers own
// the State; every operation returns an updated copy.
package session

import (
	"errors"
	"fmt"
	"strings"

	"cornucopia/pkg/domain"
)

// ProtocolStatus is the lifecycle position of a generated script.
type ProtocolStatus string

// Protocol statuses in lifecycle order. Finished and failed are terminal.
const (
	StatusGenerated ProtocolStatus = "generated"
	StatusSent      ProtocolStatus = "sent"
	StatusRunning   ProtocolStatus = "running"
	StatusFinished  ProtocolStatus = "finished"
	StatusFailed    ProtocolStatus = "failed"
)

var next = map[ProtocolStatus][]ProtocolStatus{
	StatusGenerated: {StatusSent, StatusFailed},
	StatusSent:      {StatusRunning, StatusFailed},
	StatusRunning:   {StatusFinished, StatusFailed},
}

// ParseProtocolStatus converts a tag into a ProtocolStatus.
func ParseProtocolStatus(raw string) (ProtocolStatus, error) {
	s := ProtocolStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusGenerated, StatusSent, StatusRunning, StatusFinished, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown protocol status %q", raw)
}

// Terminal reports whether no further transition is allowed.
func (s ProtocolStatus) Terminal() bool { return len(next[s]) == 0 }

// Errors returned by Advance.
var (
	ErrUnknownRun        = errors.New("session: unknown run")
	ErrInvalidTransition = errors.New("session: invalid transition")
)

// Turn is one request/response exchange.
type Turn struct {
	RunID  string           `json:"run_id"`
	Text   string           `json:"text"`
	Reply  string           `json:"reply"`
	Status domain.RunStatus `json:"status"`
}

// State is the conversation so far. The zero value is an empty conversation.
type State struct {
	ID        string                    `json:"id"`
	Turns     []Turn                    `json:"turns"`
	Protocols map[string]ProtocolStatus `json:"protocols"`
}

// New returns an empty conversation.
func New(id string) State {
	return State{ID: id, Protocols: map[string]ProtocolStatus{}}
}

// Event is what a pipeline run contributes to the conversation. Generated
// is set when the run produced an archived script.
type Event struct {
	RunID     string
	Text      string
	Reply     string
	Status    domain.RunStatus
	Generated bool
}

// Apply records ev as a new turn. A generated script enters the protocol
// table as generated; an already tracked run keeps its status.
func Apply(s State, ev Event) State {
	out := s.clone()
	out.Turns = append(out.Turns, Turn{RunID: ev.RunID, Text: ev.Text, Reply: ev.Reply, Status: ev.Status})
	if ev.Generated {
		if _, ok := out.Protocols[ev.RunID]; !ok {
			out.Protocols[ev.RunID] = StatusGenerated
		}
	}
	return out
}

// Advance moves a tracked protocol forward. Repeating the current status is
// a no-op; moving backwards or out of a terminal status fails.
func Advance(s State, runID string, to ProtocolStatus) (State, error) {
	cur, ok := s.Protocols[runID]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	if cur == to {
		return s, nil
	}
	for _, allowed := range next[cur] {
		if allowed == to {
			out := s.clone()
			out.Protocols[runID] = to
			return out, nil
		}
	}
	return s, fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, runID, cur, to)
}

// Pending returns the runs whose protocols have not reached a terminal status.
func (s State) Pending() []string {
	var out []string
	for _, t := range s.Turns {
		if st, ok := s.Protocols[t.RunID]; ok && !st.Terminal() {
			out = append(out, t.RunID)
		}
	}
	return out
}

// Last returns the most recent turn.
func (s State) Last() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

func (s State) clone() State {
	out := State{ID: s.ID, Protocols: make(map[string]ProtocolStatus, len(s.Protocols)+1)}
	out.Turns = append(make([]Turn, 0, len(s.Turns)+1), s.Turns...)
	for k, v := range s.Protocols {
		out.Protocols[k] = v
	}
	return out
}
