package nowplaying

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrQuit is returned by Keys.Run when the user asks to quit.
var ErrQuit = errors.New("quit requested")

// Keys turns control words read line by line from a terminal into
// player commands. It is a Sink only so the session can bind its
// handlers; it ignores all updates.
type Keys struct {
	r      io.Reader
	logger zerolog.Logger

	mu       sync.Mutex
	handlers Handlers
}

// NewKeys creates a Keys reading from r.
func NewKeys(r io.Reader, logger zerolog.Logger) *Keys {
	return &Keys{
		r:      r,
		logger: logger.With().Str("component", "keys").Logger(),
	}
}

func (k *Keys) SetMetadata(*Metadata) error { return nil }
func (k *Keys) SetPlaybackState(PlaybackState) error { return nil }
func (k *Keys) SetPosition(Position) error { return nil }

func (k *Keys) SetHandlers(h Handlers) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.handlers = h
}

// Run dispatches commands until ctx is cancelled, the input ends
// (returns nil), or "q" is entered (returns ErrQuit).
func (k *Keys) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(k.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := k.Dispatch(ctx, line); quit {
				return ErrQuit
			}
		}
	}
}

// Dispatch runs the command for one input line and reports whether it
// was a quit request.
func (k *Keys) Dispatch(ctx context.Context, line string) bool {
	word := strings.ToLower(strings.TrimSpace(line))
	if word == "" && strings.Contains(line, " ") {
		word = "space"
	}

	k.mu.Lock()
	h := k.handlers
	k.mu.Unlock()

	var ran bool
	switch word {
	case "":
		return false
	case "q", "quit":
		return true
	case "n", "next":
		ran = h.Next.run(ctx)
	case "p", "prev", "previous":
		ran = h.Previous.run(ctx)
	case "space", "t", "toggle":
		ran = h.Toggle.run(ctx)
	case "play":
		ran = h.Play.run(ctx)
	case "pause":
		ran = h.Pause.run(ctx)
	default:
		k.logger.Debug().Str("input", word).Msg("Unknown command")
		return false
	}

	if !ran {
		k.logger.Debug().Str("input", word).Msg("No handler bound")
	}
	return false
}
