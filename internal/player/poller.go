package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Poller reads the device playhead at regular intervals and turns it
// into events, for devices that do not push time updates.
type Poller struct {
	device   Device
	interval time.Duration
	logger   zerolog.Logger
	ended    bool
}

// NewPoller creates a new Poller instance
func NewPoller(device Device, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		device:   device,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends events to the provided channel.
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, events chan<- Event) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, events)
		}
	}
}

// poll queries the device and sends at most one event.
func (p *Poller) poll(ctx context.Context, events chan<- Event) {
	status, err := p.device.Position(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Error reading position")
		return
	}

	var ev Event
	switch {
	case status.Ended:
		// Report each end once; the next load clears it.
		if p.ended {
			return
		}
		p.ended = true
		ev = Event{Kind: EventEnded}
	case status.Idle:
		p.ended = false
		return
	default:
		p.ended = false
		ev = Event{
			Kind:     EventPosition,
			Position: status.Position,
			Duration: status.Duration,
			Rate:     status.Rate,
		}
	}

	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
