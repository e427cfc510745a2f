package player

import (
	"context"
	"time"
)

// Status is a point-in-time reading of the output device.
type Status struct {
	Position time.Duration
	Duration time.Duration
	Rate     float64
	Paused   bool
	Idle     bool // nothing loaded
	Ended    bool // the loaded track reached its end
}

// Device is the single audio output a Session drives.
type Device interface {
	// Load replaces the current source and starts buffering it.
	Load(ctx context.Context, url string) error

	// Play resumes playback of the current source.
	Play(ctx context.Context) error

	// Pause pauses playback
	Pause(ctx context.Context) error

	// Stop unloads the current source.
	Stop(ctx context.Context) error

	// Seek moves the playhead to an absolute position.
	Seek(ctx context.Context, pos time.Duration) error

	// Source returns the URL currently loaded, or "" when idle.
	Source() string

	// Paused reports whether the device is paused (or idle).
	Paused() bool

	// Position reads the playhead.
	Position(ctx context.Context) (Status, error)
}

// EventKind identifies a device notification.
type EventKind int

const (
	EventEnded    EventKind = iota // Current track finished
	EventPosition                  // Playhead moved
	EventPlaying                   // Playback started or resumed
	EventPaused                    // Playback paused
)

// String returns a human-readable representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventEnded:
		return "ended"
	case EventPosition:
		return "position"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Event is a notification from the device. Position, Duration and Rate
// are set for EventPosition only.
type Event struct {
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
	Rate     float64
	Source   string // EventEnded: the URL that finished, "" when unknown
}
