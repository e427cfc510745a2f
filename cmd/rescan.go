package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rescanCmd represents the rescan command
var rescanCmd = &cobra.Command{
	Use:   "rescan [path]",
	Short: "Ask the server to rescan the library",
	Long: `Ask the server to rescan its music folder, then list the given folder
(the root by default). While the server is scanning the listing is
retried every scan.retry_delay milliseconds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRescan,
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}

func runRescan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(logFile, logLevel)

	b, err := newBrowser(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	// Rescan reloads the browser's folder, so move there first.
	if path := pathArg(args); path != "" {
		if err := b.Load(ctx, path); err != nil {
			return err
		}
	}
	if err := b.Rescan(ctx); err != nil {
		return err
	}

	printFolder(os.Stdout, b.Snapshot(), false)
	return nil
}
