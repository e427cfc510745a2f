package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/nowplaying"
)

const writeTimeout = 5 * time.Second

// Recorder is a now-playing sink that logs each track change to a
// Store and counts the play once enough of it has been heard. It is
// not safe for concurrent use; wrap it in nowplaying.Async.
type Recorder struct {
	store  *Store
	logger zerolog.Logger

	id       int64
	url      string
	duration time.Duration
	counted  bool
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

func (r *Recorder) SetMetadata(md *nowplaying.Metadata) error {
	if md == nil {
		r.reset()
		return nil
	}
	if md.URL == r.url {
		return nil
	}

	r.reset()
	r.url = md.URL
	r.duration = md.Duration

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	id, err := r.store.Add(ctx, Play{
		Title:    md.Title,
		Artist:   md.Artist,
		Album:    md.Album,
		URL:      md.URL,
		Duration: md.Duration,
	})
	if err != nil {
		return err
	}
	r.id = id
	r.logger.Debug().Int64("id", id).Str("track", md.Title).Msg("Logged play")
	return nil
}

func (r *Recorder) SetPlaybackState(nowplaying.PlaybackState) error { return nil }

// SetPosition counts the current play once the playhead passes the
// listen threshold. The playhead stands in for time listened, so a seek
// past the threshold also counts.
func (r *Recorder) SetPosition(pos nowplaying.Position) error {
	if r.id == 0 || r.counted {
		return nil
	}

	duration := r.duration
	if pos.Duration > 0 {
		duration = pos.Duration
	}
	if !ShouldCount(duration, pos.Position) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.MarkCounted(ctx, r.id); err != nil {
		return err
	}
	r.counted = true
	r.logger.Debug().Int64("id", r.id).Msg("Counted play")
	return nil
}

func (r *Recorder) reset() {
	r.id = 0
	r.url = ""
	r.duration = 0
	r.counted = false
}
