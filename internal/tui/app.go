package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/browser"
	"github.com/jfmyers9/crate/internal/library"
	"github.com/jfmyers9/crate/internal/nowplaying"
	"github.com/jfmyers9/crate/internal/player"
)

const (
	commandTimeout = 2 * time.Second
	seekStep       = 0.05
	flashDuration  = 4 * time.Second
	commandBacklog = 32
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	ExportDir   string        // Where exported playlists are written
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 250 * time.Millisecond,
		ExportDir:   ".",
	}
}

// App is the interactive browser and player.
type App struct {
	app        *tview.Application
	list       *tview.List
	queue      *tview.TextView
	nowPlaying *tview.TextView
	progress   *tview.TextView
	status     *tview.TextView

	config  Config
	browser *browser.Browser
	session *player.Session
	logger  zerolog.Logger
	ctx     context.Context

	// commands run one at a time, in key order.
	commands chan func(ctx context.Context)

	// mu guards everything below; input handlers and the refresh
	// ticker both touch it.
	mu sync.Mutex

	entries  []entry
	listKey  string
	flash    string
	flashAt  time.Time
	lastBar  int
	rendered map[string]string

	cancelFunc context.CancelFunc
}

// New creates the TUI for a browser and a session.
func New(b *browser.Browser, s *player.Session, cfg Config, logger zerolog.Logger) *App {
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultConfig().RefreshRate
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	a := &App{
		app:      tview.NewApplication(),
		config:   cfg,
		browser:  b,
		session:  s,
		logger:   logger.With().Str("component", "tui").Logger(),
		ctx:      context.Background(),
		commands: make(chan func(ctx context.Context), commandBacklog),
		rendered: make(map[string]string),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.list = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.list.SetBorder(true).
		SetTitle(" library ").
		SetTitleAlign(tview.AlignLeft)

	a.queue = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.queue.SetBorder(true).
		SetTitle(" Queue ").
		SetTitleAlign(tview.AlignLeft)

	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	// Left: folder listing. Right: now playing over the queue.
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 7, 1, false).
		AddItem(a.queue, 0, 1, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.list, 0, 3, true).
		AddItem(right, 0, 2, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.progress, 3, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true).SetFocus(a.list)
}

// handleKeyEvent processes keyboard input. Anything that talks to the
// server or the device runs off the UI goroutine; session commands go
// through a single worker so they apply in the order keys were pressed.
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter:
		a.activate(a.list.GetCurrentItem())
		return nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.goBack()
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
	case ' ':
		a.togglePlayback()
	case 'n', 'N':
		a.command(func(ctx context.Context) { a.session.Next(ctx, false) })
	case 'p':
		a.command(func(ctx context.Context) { a.session.Previous(ctx, false) })
	case 'P':
		a.playAll()
	case 'a':
		a.enqueue(a.list.GetCurrentItem())
	case 'h':
		a.goBack()
	case 's':
		a.command(func(context.Context) {
			on := a.session.ToggleShuffle()
			a.setFlash(fmt.Sprintf("shuffle %s", onOff(on)))
		})
	case 'x':
		a.command(a.session.Stop)
	case '<', ',':
		a.seekBy(-seekStep)
	case '>', '.':
		a.seekBy(seekStep)
	case 'r':
		a.rescan()
	case 'e':
		a.export()
	default:
		return event
	}
	return nil
}

// command queues fn for runCommands. A full backlog drops the key.
func (a *App) command(fn func(ctx context.Context)) {
	select {
	case a.commands <- fn:
	default:
		a.logger.Warn().Msg("Command backlog full, dropping key")
	}
}

// runCommands executes queued session commands until ctx ends.
func (a *App) runCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-a.commands:
			cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			fn(cmdCtx)
			cancel()
		}
	}
}

func (a *App) load(path string) {
	go func() {
		if err := a.browser.Load(a.ctx, path); err != nil {
			a.logger.Debug().Err(err).Str("path", path).Msg("Load failed")
		}
	}()
}

func (a *App) goBack() {
	go func() {
		if err := a.browser.GoBack(a.ctx); err != nil {
			a.logger.Debug().Err(err).Msg("Load failed")
		}
	}()
}

func (a *App) rescan() {
	a.setFlash("rescanning...")
	go func() {
		if err := a.browser.Rescan(a.ctx); err != nil {
			a.setFlash("rescan failed")
			return
		}
		a.setFlash("rescan requested")
	}()
}

func (a *App) export() {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()

		name, text, err := a.browser.ExportPlaylist(ctx)
		if err != nil {
			if errors.Is(err, browser.ErrNoPlaylist) {
				a.setFlash("no playlist for this folder")
			} else {
				a.setFlash("export failed")
			}
			a.logger.Debug().Err(err).Msg("Export failed")
			return
		}

		dest := filepath.Join(a.config.ExportDir, name)
		if err := os.WriteFile(dest, []byte(text), 0644); err != nil {
			a.logger.Warn().Err(err).Str("file", dest).Msg("Failed to write playlist")
			a.setFlash("export failed")
			return
		}
		a.setFlash("saved " + name)
	}()
}

// activate opens the folder under the cursor, or plays the catalog from
// the track under it to the end.
func (a *App) activate(index int) {
	e, ok := a.entryAt(index)
	if !ok {
		return
	}
	switch e.kind {
	case entryParent:
		a.goBack()
	case entryFolder:
		a.load(e.folder.Path)
	case entryTrack:
		tracks := tracksFrom(a.browser.Snapshot().Catalog.Tracks, e.track)
		if len(tracks) == 0 {
			return
		}
		a.command(func(ctx context.Context) { a.session.PlayTracks(ctx, tracks, 0) })
	}
}

// tracksFrom returns the catalog tail starting at t. It returns nil when
// the catalog no longer holds t at its source index.
func tracksFrom(catalog []library.Track, t library.DisplayTrack) []library.Track {
	i := t.SourceIndex
	if i < 0 || i >= len(catalog) || catalog[i].URL != t.URL {
		return nil
	}
	return slices.Clone(catalog[i:])
}

func (a *App) enqueue(index int) {
	e, ok := a.entryAt(index)
	if !ok || e.kind != entryTrack {
		return
	}
	a.command(func(ctx context.Context) { a.session.Enqueue(ctx, e.track.Track) })
	a.setFlash("queued " + e.track.Label())
}

// playAll plays the whole catalog of the current folder, nested
// tracks included.
func (a *App) playAll() {
	tracks := a.browser.Snapshot().Catalog.Tracks
	if len(tracks) == 0 {
		a.setFlash(browser.MsgNoTracks)
		return
	}
	a.command(func(ctx context.Context) { a.session.PlayTracks(ctx, tracks, 0) })
}

// togglePlayback pauses or resumes, or plays the whole folder when the
// queue is empty.
func (a *App) togglePlayback() {
	tracks := a.browser.Snapshot().Catalog.Tracks
	a.command(func(ctx context.Context) {
		if len(a.session.Snapshot().Tracks) > 0 {
			a.session.TogglePlayback(ctx)
			return
		}
		if len(tracks) == 0 {
			a.setFlash(browser.MsgNoTracks)
			return
		}
		a.session.PlayTracks(ctx, tracks, 0)
	})
}

func (a *App) seekBy(delta float64) {
	snap := a.session.Snapshot()
	if !snap.Loaded || snap.Duration <= 0 {
		return
	}
	target := snap.Fraction + delta
	a.command(func(ctx context.Context) { a.session.Seek(ctx, target) })
}

func (a *App) entryAt(index int) (entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.entries) {
		return entry{}, false
	}
	return a.entries[index], true
}

func (a *App) setFlash(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flash = msg
	a.flashAt = time.Now()
}

// Run loads path and runs the UI until it is stopped or ctx ends.
func (a *App) Run(ctx context.Context, path string) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)
	a.ctx = ctx

	a.load(path)
	go a.runCommands(ctx)
	go a.handleUpdates(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// handleUpdates is the only source of redraws.
func (a *App) handleUpdates(ctx context.Context) {
	ticker := time.NewTicker(a.config.RefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh updates all UI components
func (a *App) refresh() {
	bs := a.browser.Snapshot()
	ss := a.session.Snapshot()

	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateList(bs)
		a.set(a.nowPlaying, "now", renderNowPlaying(ss))
		a.set(a.queue, "queue", renderQueue(ss))
		a.updateProgress(ss)
		a.updateStatus(bs, ss)
	})
}

// set replaces the text of view only when it changed.
func (a *App) set(view *tview.TextView, key, text string) {
	if a.rendered[key] == text {
		return
	}
	a.rendered[key] = text
	view.SetText(text)
}

func (a *App) updateList(bs browser.Snapshot) {
	key := fmt.Sprintf("%d/%s", bs.Generation, bs.Status)
	if key == a.listKey {
		return
	}
	a.listKey = key

	a.entries = buildEntries(bs)
	a.list.Clear()
	for _, e := range a.entries {
		a.list.AddItem(e.text(), "", 0, nil)
	}
	a.list.SetTitle(fmt.Sprintf(" %s ", tview.Escape(bs.Label())))
}

func (a *App) updateProgress(ss player.Snapshot) {
	var text string
	if ss.Loaded {
		_, _, width, _ := a.progress.GetInnerRect()
		// Keep the last good width; layout can briefly report zero.
		if barWidth := width - 16; barWidth > 0 {
			a.lastBar = barWidth
		}
		if a.lastBar < 10 {
			a.lastBar = 10
		}
		text = fmt.Sprintf("%s %s %s",
			library.FormatDuration(ss.Elapsed),
			buildProgressBar(ss.Fraction, a.lastBar),
			library.FormatDuration(ss.Duration))
	}
	a.set(a.progress, "progress", text)
}

func (a *App) updateStatus(bs browser.Snapshot, ss player.Snapshot) {
	var msg string
	switch {
	case a.flash != "" && time.Since(a.flashAt) < flashDuration:
		msg = "[yellow]" + tview.Escape(a.flash) + "[-]  "
	case bs.Status == browser.StatusLoading:
		msg = "[yellow]loading...[-]  "
	case bs.Status == browser.StatusScanning:
		msg = "[yellow]library is scanning, retrying...[-]  "
	case bs.Message != "":
		msg = "[red]" + tview.Escape(bs.Message) + "[-]  "
	}

	shuffle := ""
	if ss.Shuffle {
		shuffle = "[green]shuffle[-]  "
	}
	a.set(a.status, "status", msg+shuffle+
		"[gray]q:quit  enter:open/play  P:play all  a:queue  h:back  space:pause  n/p:next/prev  </>:seek  s:shuffle  x:clear  r:rescan  e:export[-]")
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

type entryKind int

const (
	entryParent entryKind = iota
	entryFolder
	entryTrack
)

// entry is one row of the folder listing.
type entry struct {
	kind   entryKind
	folder library.Folder
	track  library.DisplayTrack
}

func (e entry) text() string {
	switch e.kind {
	case entryParent:
		return "[gray]..[-]"
	case entryFolder:
		return "[blue]" + tview.Escape(e.folder.Name) + "/[-]"
	default:
		label := tview.Escape(e.track.Label())
		if e.track.Duration > 0 {
			label += " [gray]" + library.FormatDuration(e.track.Duration) + "[-]"
		}
		return label
	}
}

// buildEntries lists the parent link, subfolders and then the tracks
// directly inside the folder.
func buildEntries(bs browser.Snapshot) []entry {
	entries := make([]entry, 0, 1+len(bs.Catalog.Folders)+len(bs.Display))
	if bs.Path != "" {
		entries = append(entries, entry{kind: entryParent})
	}
	for _, f := range bs.Catalog.Folders {
		entries = append(entries, entry{kind: entryFolder, folder: f})
	}
	for _, t := range bs.Display {
		entries = append(entries, entry{kind: entryTrack, track: t})
	}
	return entries
}

func renderNowPlaying(ss player.Snapshot) string {
	if !ss.Loaded {
		return "\n\n[gray]Nothing playing[-]"
	}

	t := ss.Current
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(t.Label())))
	if t.Artist != "" {
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(t.Artist)))
	}
	if t.Album != "" {
		sb.WriteString(fmt.Sprintf("[gray]%s[-]\n", tview.Escape(t.Album)))
	}

	stateIcon := "[green]▶[-]" // Play triangle
	if ss.State != nowplaying.StatePlaying {
		stateIcon = "[yellow]⏸[-]" // Pause icon
	}
	sb.WriteString(stateIcon)
	return sb.String()
}

func renderQueue(ss player.Snapshot) string {
	if len(ss.Tracks) == 0 {
		return "[gray]Queue is empty[-]"
	}

	var sb strings.Builder
	for i, t := range ss.Tracks {
		if i > 0 {
			sb.WriteString("\n")
		}
		if i == ss.Cursor {
			sb.WriteString(fmt.Sprintf("[green]▶ %s[-]", tview.Escape(t.Label())))
		} else {
			sb.WriteString(fmt.Sprintf("  %s", tview.Escape(t.Label())))
		}
	}
	return sb.String()
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)

	filled := int(fraction * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
