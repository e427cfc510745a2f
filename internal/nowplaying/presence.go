package nowplaying

import (
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// seekTolerance is how far the reported position may drift from the
// activity's start timestamp before the activity is re-sent.
const seekTolerance = 3 * time.Second

type rpcClient interface {
	SetActivity(Activity) error
	Close() error
}

// Presence shows the current track as Discord Rich Presence. It is not
// safe for concurrent use; wrap it in an Async sink.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
	artwork *artworkLookup
	now     func() time.Time

	md    *Metadata
	state PlaybackState
	pos   Position
	last  lastActivity
	start time.Time
}

type lastActivity struct {
	title, artist, album string
	playing              bool
}

// NewPresence creates a Presence for the Discord application appID.
func NewPresence(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
		artwork: newArtworkLookup(),
		now:     time.Now,
	}
}

func (p *Presence) SetMetadata(md *Metadata) error {
	if md == nil {
		p.md = nil
	} else {
		cp := *md
		p.md = &cp
	}
	p.pos = Position{}
	if p.md != nil {
		p.pos.Duration = p.md.Duration
	}
	return p.update(false)
}

func (p *Presence) SetPlaybackState(state PlaybackState) error {
	p.state = state
	return p.update(false)
}

// SetPosition re-sends the activity only after a seek, so the elapsed
// timer Discord shows stays correct.
func (p *Presence) SetPosition(pos Position) error {
	p.pos = pos
	if !p.last.playing {
		return nil
	}
	drift := p.now().Add(-pos.Position).Sub(p.start)
	if drift < -seekTolerance || drift > seekTolerance {
		return p.update(true)
	}
	return nil
}

func (p *Presence) update(force bool) error {
	if p.md == nil || p.state != StatePlaying {
		if p.last.playing {
			p.clearActivity()
			p.last = lastActivity{}
		}
		return nil
	}

	cur := lastActivity{
		title: p.md.Title, artist: p.md.Artist,
		album: p.md.Album, playing: true,
	}
	if cur == p.last && !force {
		return nil
	}

	if err := p.ensureConnected(); err != nil {
		p.logger.Warn().Err(err).Msg("Discord not available")
		return err
	}

	p.start = p.now().Add(-p.pos.Position)
	startUnix := p.start.Unix()
	timestamps := &Timestamps{Start: &startUnix}
	if p.pos.Duration > 0 {
		endUnix := p.start.Add(p.pos.Duration).Unix()
		timestamps.End = &endUnix
	}

	err := p.client.SetActivity(Activity{
		Type:       2, // Listening
		Name:       "crate",
		Details:    p.md.Title,
		State:      "by " + p.md.Artist,
		Timestamps: timestamps,
		Assets: &Assets{
			LargeImage: p.largeImage(),
			LargeText:  p.md.Album,
			SmallImage: "crate",
			SmallText:  "crate",
		},
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return err
	}
	p.last = cur
	return nil
}

// largeImage prefers the track's own artwork when Discord can fetch it.
func (p *Presence) largeImage() string {
	if u, err := url.Parse(p.md.ArtworkURL); err == nil && u.Scheme == "https" {
		return p.md.ArtworkURL
	}
	if p.artwork == nil {
		return ""
	}
	return p.artwork.Lookup(p.md.Artist, p.md.Album)
}

func (p *Presence) ensureConnected() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

func (p *Presence) clearActivity() {
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(Activity{}); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

// Close clears the activity and disconnects.
func (p *Presence) Close() error {
	if p.last.playing {
		p.clearActivity()
		p.last = lastActivity{}
	}
	p.close()
	return nil
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	_ = p.client.Close()
	p.client = nil
}
