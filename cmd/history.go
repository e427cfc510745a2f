package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/history"
	"github.com/jfmyers9/crate/internal/nowplaying"
)

var (
	historyLimit int
	historyPrune time.Duration
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Long: `Show the tracks crate has played, newest first.

A play is marked with * once it counts as listened: the track is longer
than 30 seconds and at least half of it, or 4 minutes, was played.
Use --prune to delete plays older than the given age.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of plays to show (0 for all)")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete plays older than this age (e.g. 720h)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	// History needs no server.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogger(logFile, logLevel)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer closeQuietly(store, logger)

	ctx := context.Background()

	if historyPrune > 0 {
		deleted, err := store.Cleanup(ctx, historyPrune)
		if err != nil {
			return err
		}
		logger.Info().Int64("deleted", deleted).Msg("Pruned play history")
	}

	plays, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	counted, err := store.Count(ctx, true)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx, false)
	if err != nil {
		return err
	}

	printPlays(os.Stdout, plays)
	fmt.Printf("\n%d plays, %d listened\n", total, counted)
	return nil
}

func printPlays(w io.Writer, plays []history.Play) {
	if len(plays) == 0 {
		fmt.Fprintln(w, "No plays yet")
		return
	}
	for _, p := range plays {
		mark := " "
		if p.Counted {
			mark = "*"
		}
		artist := p.Artist
		if artist == "" {
			artist = "-"
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n",
			mark,
			p.PlayedAt.Local().Format("2006-01-02 15:04"),
			nowplaying.PadToWidth(artist, 24),
			p.Title,
		)
	}
}
