package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/audio"
	"github.com/jfmyers9/crate/internal/browser"
	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/history"
	"github.com/jfmyers9/crate/internal/nowplaying"
	"github.com/jfmyers9/crate/internal/player"
	"github.com/jfmyers9/crate/pkg/musrv"
)

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newBrowser connects a folder browser to the configured server.
func newBrowser(cfg *config.Config, logger zerolog.Logger) (*browser.Browser, error) {
	client, err := musrv.NewClient(musrv.Config{
		BaseURL: cfg.ServerURL,
		Logger:  clientLogger{logger: logger.With().Str("component", "musrv").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server client: %w", err)
	}

	return browser.New(client, browser.Config{
		RetryDelay: cfg.Scan.RetryDelay,
		MaxRetries: cfg.Scan.MaxRetries,
		BaseURL:    client.BaseURL(),
	}, logger), nil
}

// signalContext is cancelled on the first SIGINT/SIGTERM. A second
// signal forces exit.
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Info().Msg("Shutdown signal received, stopping playback")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return ctx, cancel
}

// playerRig is a running session with its device and sinks.
type playerRig struct {
	session *player.Session
	device  *audio.MPV
	store   *history.Store
	logger  zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startPlayer launches mpv, the configured now-playing sinks and the
// event loop. Slow sinks run behind nowplaying.Async. extra sinks are
// called inline.
func startPlayer(ctx context.Context, cfg *config.Config, b *browser.Browser, logger zerolog.Logger, extra ...nowplaying.Sink) (*playerRig, error) {
	device, err := audio.Start(ctx, audio.Config{Path: cfg.MPV.Path}, logger.With().Str("component", "mpv").Logger())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	rig := &playerRig{device: device, logger: logger, cancel: cancel}

	var async []*nowplaying.Async
	if cfg.Discord.AppID != "" {
		async = append(async, nowplaying.NewAsync(nowplaying.NewPresence(cfg.Discord.AppID, logger), logger))
	}
	if cfg.LastFM.Enabled() {
		lfm, err := nowplaying.NewLastFM(nowplaying.LastFMConfig{
			APIKey:     cfg.LastFM.APIKey,
			APISecret:  cfg.LastFM.APISecret,
			SessionKey: cfg.LastFM.SessionKey,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Last.fm disabled")
		} else {
			async = append(async, nowplaying.NewAsync(lfm, logger))
		}
	}
	if cfg.History.Enabled {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			logger.Warn().Err(err).Msg("History disabled")
		} else if store, err := history.Open(cfg.HistoryPath()); err != nil {
			logger.Warn().Err(err).Msg("History disabled")
		} else {
			rig.store = store
			async = append(async, nowplaying.NewAsync(history.NewRecorder(store, logger), logger))
		}
	}

	sinks := extra
	for _, a := range async {
		sinks = append(sinks, a)
		rig.goRun(func() { a.Run(ctx) })
	}

	rig.session = player.NewSession(device, logger,
		player.WithSink(nowplaying.Multi(sinks...)),
		player.WithFolderLabel(b.Label),
	)

	// mpv pushes end and pause events; positions come from polling.
	events := make(chan player.Event, 16)
	rig.goRun(func() {
		for ev := range device.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	})
	poller := player.NewPoller(device, cfg.PollInterval, logger)
	rig.goRun(func() {
		if err := poller.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Poller error")
		}
	})
	rig.goRun(func() {
		if err := rig.session.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Session error")
		}
	})

	return rig, nil
}

func (r *playerRig) goRun(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// Close stops playback, waits for the sinks to flush and shuts down mpv.
func (r *playerRig) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	r.session.Stop(ctx)
	cancel()

	r.cancel()
	// mpv closes its event channel; the forwarder returns on ctx.
	r.wg.Wait()

	var errs []error
	if err := r.device.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}

// closeQuietly is for deferred cleanups whose error is only worth a log line.
func closeQuietly(c io.Closer, logger zerolog.Logger) {
	if err := c.Close(); err != nil {
		logger.Debug().Err(err).Msg("Cleanup failed")
	}
}
