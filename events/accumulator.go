// Package events accumulates discrete runtime occurrences (signals, tree
// changes, watched-property changes) between agent observations.
package events

import "sync"

// Type enumerates the kinds of runtime events.
type Type string

const (
	TypeSignal          Type = "signal"
	TypeNodeAdded       Type = "node_added"
	TypeNodeRemoved     Type = "node_removed"
	TypePropertyChanged Type = "property_changed"
	TypeSceneChanged    Type = "scene_changed"
)

// Event is one recorded occurrence from the running game.
type Event struct {
	ID     int64          `json:"id"`
	Type   Type           `json:"type"`
	Time   float64        `json:"time"`
	Frame  int64          `json:"frame"`
	Source string         `json:"source,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Accumulator is an append-only event log with strictly increasing ids.
// Ids start at 1 and are never reused, even across drains.
type Accumulator struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewAccumulator() *Accumulator {
	return &Accumulator{nextID: 1}
}

// Record appends the event with a freshly assigned id and returns that id.
// Any id on the incoming event is ignored.
func (a *Accumulator) Record(event Event) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	event.ID = a.nextID
	a.nextID++
	a.events = append(a.events, event)
	return event.ID
}

// Drain returns all held events in id order. With peek true the backing store
// is left intact, so repeated peeks are idempotent until a real drain.
func (a *Accumulator) Drain(peek bool) []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	drained := make([]Event, len(a.events))
	copy(drained, a.events)
	if !peek {
		a.events = nil
	}
	return drained
}

// Pending returns the number of undrained events.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}
