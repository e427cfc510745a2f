// Package nowplaying publishes the current track and playback state to
// outside observers, and routes their remote commands back to the player.
package nowplaying

import (
	"context"
	"errors"
	"time"
)

// PlaybackState is the coarse state reported to sinks.
type PlaybackState int

const (
	StateNone    PlaybackState = iota // Nothing loaded
	StatePlaying                      // Audio is playing
	StatePaused                       // A track is loaded but paused
)

// String returns a human-readable representation of the PlaybackState
func (s PlaybackState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Metadata describes the track being played.
type Metadata struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
	URL        string
	Duration   time.Duration // zero when unknown
}

// Position is the playhead of the current track.
type Position struct {
	Position time.Duration
	Duration time.Duration
	Rate     float64
}

// Sink receives now-playing updates. SetMetadata(nil) clears the track.
type Sink interface {
	SetMetadata(md *Metadata) error
	SetPlaybackState(state PlaybackState) error
	SetPosition(pos Position) error
}

// Action is a remote command bound to the player.
type Action func(ctx context.Context)

// Handlers are the commands a sink may trigger. Nil actions are ignored.
type Handlers struct {
	Play     Action
	Pause    Action
	Next     Action
	Previous Action
	Toggle   Action
}

// Controllable is implemented by sinks that can send commands back.
type Controllable interface {
	SetHandlers(h Handlers)
}

func (a Action) run(ctx context.Context) bool {
	if a == nil {
		return false
	}
	a(ctx)
	return true
}

type multi struct {
	sinks []Sink
}

// Multi fans updates out to every non-nil sink. It returns nil when no
// sinks remain, so callers can treat the capability as absent.
func Multi(sinks ...Sink) Sink {
	var kept []Sink
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &multi{sinks: kept}
}

func (m *multi) SetMetadata(md *Metadata) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.SetMetadata(md); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multi) SetPlaybackState(state PlaybackState) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.SetPlaybackState(state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multi) SetPosition(pos Position) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.SetPosition(pos); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetHandlers binds h on every controllable member.
func (m *multi) SetHandlers(h Handlers) {
	for _, s := range m.sinks {
		if c, ok := s.(Controllable); ok {
			c.SetHandlers(h)
		}
	}
}
