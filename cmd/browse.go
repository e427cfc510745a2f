package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/browser"
	"github.com/jfmyers9/crate/internal/library"
)

var browseAll bool

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse [path]",
	Short: "List a folder of the library",
	Long: `List the subfolders of a library folder and the tracks directly inside it.

Tracks are numbered by their position in the folder's full catalog,
which includes tracks in nested folders. Pass that number to
'crate play --from' to start playing there. Use --all to list the
whole catalog.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().BoolVar(&browseAll, "all", false, "List every track below the folder")
}

func runBrowse(cmd *cobra.Command, args []string) error {
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

	if err := b.Load(ctx, pathArg(args)); err != nil {
		return err
	}
	printFolder(os.Stdout, b.Snapshot(), browseAll)
	return nil
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return library.NormalizePath(args[0])
}

// printFolder writes folders with a trailing slash, then numbered tracks.
func printFolder(w io.Writer, snap browser.Snapshot, all bool) {
	fmt.Fprintf(w, "%s/\n", snap.Label())
	for _, f := range snap.Catalog.Folders {
		fmt.Fprintf(w, "  %s/\n", f.Name)
	}

	if all {
		for i, t := range snap.Catalog.Tracks {
			printTrack(w, i, t.RelativePath, t.Duration)
		}
	} else {
		for _, t := range snap.Display {
			printTrack(w, t.SourceIndex, t.Label(), t.Duration)
		}
	}

	if snap.Message != "" {
		fmt.Fprintln(w, snap.Message)
	}
}

func printTrack(w io.Writer, index int, label string, d time.Duration) {
	if d > 0 {
		fmt.Fprintf(w, "%4d  %s (%s)\n", index, label, library.FormatDuration(d))
		return
	}
	fmt.Fprintf(w, "%4d  %s\n", index, label)
}

