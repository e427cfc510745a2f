// Package browser tracks the folder being viewed and its catalog.
package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/library"
	"github.com/jfmyers9/crate/pkg/musrv"
)

// User-facing load messages.
const (
	MsgLoadFailed  = "failed to load folder"
	MsgNoTracks    = "no tracks found"
	MsgScanTimeout = "library scan timed out"
)

var (
	// ErrNoPlaylist is returned when the current folder has no playlist URL.
	ErrNoPlaylist = errors.New("no playlist available")

	// ErrScanTimeout is returned when the server is still scanning after
	// the configured number of retries.
	ErrScanTimeout = errors.New(MsgScanTimeout)

	errSuperseded = errors.New("superseded by a newer load")
)

// DefaultRetryDelay is the wait between listings while the server scans.
const DefaultRetryDelay = 2 * time.Second

// Lister is the server API the browser needs.
type Lister interface {
	Folder(ctx context.Context, path string) (*musrv.Folder, error)
	Playlist(ctx context.Context, url string) (string, error)
	Rescan(ctx context.Context) error
}

// Status is the load state of the browser.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusScanning
	StatusReady
	StatusError
)

// String returns a human-readable representation of the Status
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusScanning:
		return "scanning"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Config tunes folder loading.
type Config struct {
	RetryDelay time.Duration // wait while the server scans (defaults to DefaultRetryDelay)
	MaxRetries int           // scanning retries before giving up; 0 retries forever
	BaseURL    string        // server root, used to derive track paths from playlist URLs
}

// Browser holds the currently viewed folder. Only the most recently
// started Load may change it.
type Browser struct {
	lister Lister
	cfg    Config
	logger zerolog.Logger

	mu         sync.Mutex
	path       string
	catalog    library.Catalog
	display    []library.DisplayTrack
	status     Status
	message    string
	generation uint64
}

// New creates a Browser at the library root. Nothing is fetched until Load.
func New(lister Lister, cfg Config, logger zerolog.Logger) *Browser {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Browser{
		lister: lister,
		cfg:    cfg,
		logger: logger.With().Str("component", "browser").Logger(),
	}
}

// Load fetches path and makes it the current folder. A result that
// arrives after a newer Load has started is dropped and Load returns nil.
func (b *Browser) Load(ctx context.Context, path string) error {
	path = library.NormalizePath(path)

	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.status = StatusLoading
	b.message = ""
	b.mu.Unlock()

	b.logger.Debug().Str("path", path).Uint64("generation", gen).Msg("Loading folder")

	folder, catalog, err := b.fetch(ctx, gen, path)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation || errors.Is(err, errSuperseded) {
		b.logger.Debug().Str("path", path).Uint64("generation", gen).Msg("Discarding stale folder load")
		return nil
	}

	if err != nil {
		b.catalog = library.Catalog{Path: b.path}
		b.display = nil
		b.status = StatusError
		b.message = MsgLoadFailed
		if errors.Is(err, ErrScanTimeout) {
			b.message = MsgScanTimeout
		}
		b.logger.Warn().Err(err).Str("path", path).Msg("Failed to load folder")
		return fmt.Errorf("failed to load folder %q: %w", path, err)
	}

	b.path = library.NormalizePath(folder.Path)
	catalog.Path = b.path
	b.catalog = catalog
	b.display = library.Scope(catalog.Tracks, b.path)
	b.status = StatusReady
	if catalog.Empty() {
		b.message = MsgNoTracks
	}

	b.logger.Info().
		Str("path", b.path).
		Int("folders", len(catalog.Folders)).
		Int("tracks", len(catalog.Tracks)).
		Int("display", len(b.display)).
		Msg("Loaded folder")
	return nil
}

// fetch lists path, waiting out server scans while gen is still current.
func (b *Browser) fetch(ctx context.Context, gen uint64, path string) (*musrv.Folder, library.Catalog, error) {
	var folder *musrv.Folder
	for attempt := 0; ; attempt++ {
		var err error
		folder, err = b.lister.Folder(ctx, path)
		if err != nil {
			return nil, library.Catalog{}, err
		}
		if !folder.Scanning {
			break
		}

		if b.cfg.MaxRetries > 0 && attempt >= b.cfg.MaxRetries {
			return nil, library.Catalog{}, ErrScanTimeout
		}
		if !b.markScanning(gen) {
			return nil, library.Catalog{}, errSuperseded
		}

		b.logger.Info().
			Str("path", path).
			Dur("retry_in", b.cfg.RetryDelay).
			Msg("Library is scanning, waiting")

		select {
		case <-ctx.Done():
			return nil, library.Catalog{}, ctx.Err()
		case <-time.After(b.cfg.RetryDelay):
		}
	}

	if !b.isCurrent(gen) {
		return nil, library.Catalog{}, errSuperseded
	}

	catalog := library.Catalog{
		Folders:     make([]library.Folder, 0, len(folder.Albums)),
		PlaylistURL: folder.M3U8,
	}
	for _, a := range folder.Albums {
		catalog.Folders = append(catalog.Folders, library.Folder{Name: a.Name, Path: library.NormalizePath(a.Path)})
	}

	if len(folder.Tracks) > 0 {
		catalog.Tracks = make([]library.Track, 0, len(folder.Tracks))
		for _, t := range folder.Tracks {
			catalog.Tracks = append(catalog.Tracks, fromWire(t))
		}
	} else if folder.M3U8 != "" {
		text, err := b.lister.Playlist(ctx, folder.M3U8)
		if err != nil {
			return nil, library.Catalog{}, fmt.Errorf("failed to fetch playlist: %w", err)
		}
		catalog.Tracks = tracksFromPlaylist(text, b.cfg.BaseURL)
	}

	return folder, catalog, nil
}

func (b *Browser) isCurrent(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return gen == b.generation
}

func (b *Browser) markScanning(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return false
	}
	b.status = StatusScanning
	return true
}

func fromWire(t musrv.Track) library.Track {
	return library.Track{
		Name:         t.Name,
		DisplayName:  t.DisplayName,
		RelativePath: t.RelativePath,
		URL:          t.URL,
		Title:        t.Title,
		Artist:       t.Artist,
		Album:        t.Album,
		Duration:     t.Length(),
		ArtworkURL:   t.ArtworkURL,
	}.Normalize()
}

// GoBack loads the parent folder. At the root it does nothing.
func (b *Browser) GoBack(ctx context.Context) error {
	b.mu.Lock()
	path := b.path
	b.mu.Unlock()

	if path == "" {
		return nil
	}
	return b.Load(ctx, library.ParentPath(path))
}

// Reload loads the current folder again.
func (b *Browser) Reload(ctx context.Context) error {
	b.mu.Lock()
	path := b.path
	b.mu.Unlock()
	return b.Load(ctx, path)
}

// Rescan asks the server to rescan, then reloads. A failed rescan leaves
// the browser untouched.
func (b *Browser) Rescan(ctx context.Context) error {
	if err := b.lister.Rescan(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("Rescan failed")
		return fmt.Errorf("failed to rescan library: %w", err)
	}
	b.logger.Info().Msg("Rescan requested")
	return b.Reload(ctx)
}

// PlaylistURL returns the playlist URL of the current folder, or "".
func (b *Browser) PlaylistURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.catalog.PlaylistURL
}

// Snapshot is a copy of the browser state.
type Snapshot struct {
	Path       string
	Catalog    library.Catalog
	Display    []library.DisplayTrack
	Status     Status
	Message    string
	Generation uint64
}

// Label is the folder label of the snapshot path.
func (s Snapshot) Label() string {
	return library.FolderLabel(s.Path)
}

// Snapshot returns a copy of the current state.
func (b *Browser) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	catalog := b.catalog
	catalog.Folders = slices.Clone(b.catalog.Folders)
	catalog.Tracks = slices.Clone(b.catalog.Tracks)

	return Snapshot{
		Path:       b.path,
		Catalog:    catalog,
		Display:    slices.Clone(b.display),
		Status:     b.status,
		Message:    b.message,
		Generation: b.generation,
	}
}

// Label is the label of the current folder, "library" at the root.
func (b *Browser) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return library.FolderLabel(b.path)
}
