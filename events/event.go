// Package events defines the structured state-change notifications emitted by
// the vault engine and consumed by downstream subscribers (metrics, loggers,
// indexers, test harnesses).
package events

// Event represents a structured state change emitted by a vault.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default emitter on every engine so that event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
