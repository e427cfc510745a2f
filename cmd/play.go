package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jfmyers9/crate/internal/browser"
	"github.com/jfmyers9/crate/internal/nowplaying"
)

const commandTimeout = 2 * time.Second

var (
	playFrom    int
	playShuffle bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [path]",
	Short: "Play a folder without the interactive UI",
	Long: `Play every track in a library folder, nested folders included.

A status line is printed whenever the track or play state changes,
formatted with output_format. Control playback by typing a word and
pressing enter:

  n, next        next track
  p, prev        previous track
  t, toggle, ' ' play/pause
  play, pause
  q, quit        stop and exit

Discord Rich Presence, Last.fm now playing and the play history are
enabled when configured. Stop with Ctrl-C; a second Ctrl-C forces exit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVar(&playFrom, "from", 0, "Catalog index of the first track (see 'crate browse')")
	playCmd.Flags().BoolVar(&playShuffle, "shuffle", false, "Shuffle after the first track")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(logFile, logLevel)

	line, err := nowplaying.NewLine(os.Stdout, cfg.OutputFormat, lineWidth(cfg.OutputWidth))
	if err != nil {
		return fmt.Errorf("invalid output_format: %w", err)
	}
	keys := nowplaying.NewKeys(os.Stdin, logger)

	b, err := newBrowser(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := b.Load(ctx, pathArg(args)); err != nil {
		return err
	}
	tracks := b.Snapshot().Catalog.Tracks
	if len(tracks) == 0 {
		return errors.New(browser.MsgNoTracks)
	}

	rig, err := startPlayer(ctx, cfg, b, logger, line, keys)
	if err != nil {
		return err
	}
	defer func() {
		if err := rig.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error during shutdown")
		}
	}()

	if !rig.session.PlayTracks(ctx, tracks, playFrom) {
		return errors.New(browser.MsgNoTracks)
	}
	if playShuffle || cfg.Audio.Shuffle {
		rig.session.SetShuffle(true)
	}

	err = keys.Run(ctx)
	switch {
	case errors.Is(err, nowplaying.ErrQuit):
		logger.Debug().Msg("Quit requested")
	case err == nil:
		// stdin closed; keep playing until a signal arrives.
		<-ctx.Done()
	}
	return nil
}

// lineWidth resolves output_width: -1 fits the terminal, falling back to
// no padding when stdout is not one.
func lineWidth(configured int) int {
	if configured >= 0 {
		return configured
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
