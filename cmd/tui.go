package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/tui"
)

var tuiExportDir string

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui [path]",
	Short: "Browse and play the library in a terminal UI",
	Long: `Open an interactive browser for the library, starting at path.

Keys:
  enter      open folder / play from the selected track
  P          play every track in the folder, nested folders included
  a          add the selected track to the queue
  h, bksp    parent folder
  space      play/pause
  n, p       next / previous track
  <, >       seek back / forward
  s          toggle shuffle
  x          stop and clear the queue
  r          ask the server to rescan, then reload
  e          save the folder's playlist as <folder>.m3u8
  q          quit

Logs are discarded unless --log-file is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiExportDir, "export-dir", ".", "Directory for exported playlists")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := quietLogger(logFile, logLevel)

	b, err := newBrowser(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	rig, err := startPlayer(ctx, cfg, b, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rig.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error during shutdown")
		}
	}()
	if cfg.Audio.Shuffle {
		rig.session.SetShuffle(true)
	}

	tcfg := tui.DefaultConfig()
	tcfg.ExportDir = tuiExportDir
	app := tui.New(b, rig.session, tcfg, logger)
	return app.Run(ctx, pathArg(args))
}
