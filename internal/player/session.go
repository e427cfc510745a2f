package player

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/library"
	"github.com/jfmyers9/crate/internal/nowplaying"
)

// Session binds a Queue to a Device. Every method is safe to call from
// any goroutine; mutations are applied one at a time.
type Session struct {
	mu     sync.Mutex
	queue  *Queue
	device Device
	sink   nowplaying.Sink
	logger zerolog.Logger
	label  func() string

	published string // URL of the track last sent to the sink
	state     nowplaying.PlaybackState
	elapsed   time.Duration
	duration  time.Duration
	rate      float64
}

// Option configures a Session.
type Option func(*Session)

// WithSink publishes now-playing updates to sink. If the sink is
// Controllable its handlers are bound to the session.
func WithSink(sink nowplaying.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithRand sets the random source used for shuffle.
func WithRand(intn func(n int) int) Option {
	return func(s *Session) { s.queue = NewQueue(intn) }
}

// WithFolderLabel supplies the label used as artist and album when a
// track has no tags.
func WithFolderLabel(label func() string) Option {
	return func(s *Session) { s.label = label }
}

// NewSession creates a Session driving device.
func NewSession(device Device, logger zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		queue:  NewQueue(nil),
		device: device,
		logger: logger.With().Str("component", "session").Logger(),
		label:  func() string { return "" },
		rate:   1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if c, ok := s.sink.(nowplaying.Controllable); ok {
		c.SetHandlers(nowplaying.Handlers{
			Play:     func(ctx context.Context) { s.Play(ctx) },
			Pause:    func(ctx context.Context) { s.Pause(ctx) },
			Next:     func(ctx context.Context) { s.Next(ctx, false) },
			Previous: func(ctx context.Context) { s.Previous(ctx, false) },
			Toggle:   s.TogglePlayback,
		})
	}
	return s
}

// PlayTracks replaces the queue and starts playing at start. It returns
// false, stopping playback, when none of the tracks is playable.
func (s *Session) PlayTracks(ctx context.Context, tracks []library.Track, start int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.queue.Replace(tracks, start) {
		s.stop(ctx)
		return false
	}

	s.logger.Info().
		Int("tracks", s.queue.Len()).
		Int("start", s.queue.Cursor()).
		Msg("Playing tracks")
	s.apply(ctx, true)
	return true
}

// Enqueue appends a track, starting playback if the queue was empty.
func (s *Session) Enqueue(ctx context.Context, track library.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !track.Valid() {
		s.logger.Debug().Str("track", track.Name).Msg("Ignoring unplayable track")
		return
	}
	if s.queue.Append(track) {
		s.apply(ctx, true)
	}
}

// Next moves to the next track. Playback continues if forced or if the
// device was not paused.
func (s *Session) Next(ctx context.Context, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(ctx, Forward, force)
}

// Previous moves to the previous track, wrapping at the start.
func (s *Session) Previous(ctx context.Context, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(ctx, Backward, force)
}

func (s *Session) advance(ctx context.Context, dir Direction, force bool) {
	autoplay := force || !s.device.Paused()
	if _, ok := s.queue.Advance(dir); !ok {
		return
	}
	s.apply(ctx, autoplay)
}

// JumpTo plays the queue entry at index.
func (s *Session) JumpTo(ctx context.Context, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Jump(index) {
		s.apply(ctx, true)
	}
}

// SetShuffle sets shuffle and returns the effective value.
func (s *Session) SetShuffle(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.SetShuffle(enabled)
}

// ToggleShuffle flips shuffle and returns the effective value.
func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.ToggleShuffle()
}

// Stop clears the queue and unloads the device.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop(ctx)
}

func (s *Session) stop(ctx context.Context) {
	s.queue.Clear()
	if err := s.device.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Device rejected stop")
	}
	s.elapsed, s.duration = 0, 0
	s.published = ""
	s.publishMetadata(nil)
	s.publishState(nowplaying.StateNone)
}

// TogglePlayback starts the queue when nothing is loaded, and otherwise
// flips between play and pause.
func (s *Session) TogglePlayback(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device.Source() == "" {
		s.apply(ctx, true)
		return
	}
	if s.device.Paused() {
		s.play(ctx)
	} else {
		s.pause(ctx)
	}
}

// Play resumes the current track, loading it first if needed.
func (s *Session) Play(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ctx, true)
}

// Pause pauses playback.
func (s *Session) Pause(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device.Source() != "" {
		s.pause(ctx)
	}
}

// Seek moves to fraction (0..1) of the current track. It does nothing
// when the duration is unknown.
func (s *Session) Seek(ctx context.Context, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device.Source() == "" || s.duration <= 0 {
		return
	}
	fraction = min(max(fraction, 0), 1)
	pos := time.Duration(fraction * float64(s.duration))

	if err := s.device.Seek(ctx, pos); err != nil {
		s.logger.Warn().Err(err).Dur("position", pos).Msg("Device rejected seek")
		return
	}
	s.elapsed = pos
	s.publishPosition()
}

// apply makes the device reflect the queue cursor. Device failures are
// logged; queue state is kept either way.
func (s *Session) apply(ctx context.Context, autoplay bool) {
	track, ok := s.queue.Current()
	if !ok {
		return
	}

	if s.device.Source() != track.URL {
		s.logger.Debug().Str("url", track.URL).Msg("Loading track")
		if err := s.device.Load(ctx, track.URL); err != nil {
			s.logger.Warn().Err(err).Str("url", track.URL).Msg("Device rejected load")
		}
		s.elapsed, s.duration = 0, track.Duration
	}
	if s.published != track.URL {
		s.published = track.URL
		s.publishMetadata(s.metadata(track))
	}

	if autoplay {
		s.play(ctx)
	} else {
		s.pause(ctx)
	}
}

func (s *Session) play(ctx context.Context) {
	if err := s.device.Play(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Device rejected play")
		return
	}
	s.publishState(nowplaying.StatePlaying)
}

func (s *Session) pause(ctx context.Context) {
	if err := s.device.Pause(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Device rejected pause")
		return
	}
	s.publishState(nowplaying.StatePaused)
}

// HandleEvent applies a device notification.
func (s *Session) HandleEvent(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventEnded:
		// A load issued after the end was read already moved on.
		if cur, ok := s.queue.Current(); ev.Source != "" && (!ok || cur.URL != ev.Source) {
			s.logger.Debug().Str("url", ev.Source).Msg("Ignoring end of superseded track")
			return
		}
		s.logger.Debug().Msg("Track ended")
		s.advance(ctx, Forward, true)
	case EventPosition:
		s.elapsed = max(ev.Position, 0)
		if ev.Duration > 0 {
			s.duration = ev.Duration
		}
		if ev.Rate > 0 {
			s.rate = ev.Rate
		}
		s.publishPosition()
	case EventPlaying:
		if s.queue.Len() > 0 {
			s.publishState(nowplaying.StatePlaying)
		}
	case EventPaused:
		if s.queue.Len() > 0 {
			s.publishState(nowplaying.StatePaused)
		}
	}
}

// Run applies device events until ctx is cancelled or events is closed.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Tracks   []library.Track
	Cursor   int
	Shuffle  bool
	Current  library.Track
	Loaded   bool // Current is valid
	Elapsed  time.Duration
	Duration time.Duration
	Fraction float64
	State    nowplaying.PlaybackState
}

// Playing reports whether audio is playing.
func (s Snapshot) Playing() bool {
	return s.State == nowplaying.StatePlaying
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tracks:   s.queue.Tracks(),
		Cursor:   s.queue.Cursor(),
		Shuffle:  s.queue.Shuffle(),
		Elapsed:  s.elapsed,
		Duration: s.duration,
		State:    s.state,
	}
	snap.Current, snap.Loaded = s.queue.Current()
	if s.duration > 0 {
		snap.Fraction = min(float64(s.elapsed)/float64(s.duration), 1)
	}
	return snap
}

func (s *Session) metadata(t library.Track) *nowplaying.Metadata {
	md := &nowplaying.Metadata{
		Title:      t.Label(),
		Artist:     t.Artist,
		Album:      t.Album,
		ArtworkURL: t.ArtworkURL,
		URL:        t.URL,
		Duration:   t.Duration,
	}
	if md.Artist == "" || md.Album == "" {
		label := s.label()
		if md.Artist == "" {
			md.Artist = label
		}
		if md.Album == "" {
			md.Album = label
		}
	}
	return md
}

func (s *Session) publishMetadata(md *nowplaying.Metadata) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SetMetadata(md); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to publish metadata")
	}
}

func (s *Session) publishState(state nowplaying.PlaybackState) {
	if state == s.state {
		return
	}
	s.state = state
	if s.sink == nil {
		return
	}
	if err := s.sink.SetPlaybackState(state); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to publish playback state")
	}
}

func (s *Session) publishPosition() {
	if s.sink == nil {
		return
	}
	err := s.sink.SetPosition(nowplaying.Position{
		Position: s.elapsed,
		Duration: s.duration,
		Rate:     s.rate,
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to publish position")
	}
}
