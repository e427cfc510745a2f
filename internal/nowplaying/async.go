package nowplaying

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type opKind int

const (
	opMetadata opKind = iota
	opState
	opPosition
)

type op struct {
	kind  opKind
	md    *Metadata
	state PlaybackState
	pos   Position
}

// Async hands updates to a slow sink on its own goroutine, so the
// player never waits on a socket or an HTTP round trip. Updates are
// applied in order; consecutive positions collapse into the latest.
type Async struct {
	sink   Sink
	logger zerolog.Logger

	mu      sync.Mutex
	backlog []op
	wake    chan struct{}
}

// NewAsync wraps sink. Nothing is delivered until Run is started.
func NewAsync(sink Sink, logger zerolog.Logger) *Async {
	return &Async{
		sink:   sink,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

func (a *Async) SetMetadata(md *Metadata) error {
	var cp *Metadata
	if md != nil {
		v := *md
		cp = &v
	}
	a.push(op{kind: opMetadata, md: cp})
	return nil
}

func (a *Async) SetPlaybackState(state PlaybackState) error {
	a.push(op{kind: opState, state: state})
	return nil
}

func (a *Async) SetPosition(pos Position) error {
	a.push(op{kind: opPosition, pos: pos})
	return nil
}

// SetHandlers forwards to the wrapped sink when it is Controllable.
func (a *Async) SetHandlers(h Handlers) {
	if c, ok := a.sink.(Controllable); ok {
		c.SetHandlers(h)
	}
}

func (a *Async) push(o op) {
	a.mu.Lock()
	if n := len(a.backlog); o.kind == opPosition && n > 0 && a.backlog[n-1].kind == opPosition {
		a.backlog[n-1] = o
	} else {
		a.backlog = append(a.backlog, o)
	}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued updates until ctx is cancelled, then closes the
// wrapped sink if it is an io.Closer.
func (a *Async) Run(ctx context.Context) {
	defer func() {
		if c, ok := a.sink.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}

		a.mu.Lock()
		batch := a.backlog
		a.backlog = nil
		a.mu.Unlock()

		for _, o := range batch {
			if err := a.apply(o); err != nil {
				a.logger.Debug().Err(err).Msg("Sink update failed")
			}
		}
	}
}

func (a *Async) apply(o op) error {
	switch o.kind {
	case opMetadata:
		return a.sink.SetMetadata(o.md)
	case opState:
		return a.sink.SetPlaybackState(o.state)
	default:
		return a.sink.SetPosition(o.pos)
	}
}
