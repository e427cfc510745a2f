package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	exportOut      string
	exportPrintURL bool
	exportQR       bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Save a folder's playlist as an .m3u8 file",
	Long: `Download the server-generated playlist for a folder and save it as
<folder>.m3u8 ("library.m3u8" at the root). Characters that are not
allowed in file names are replaced with "-".

With --print-url the playlist URL is printed instead, for use with
another player. Add --qr to also draw it as a QR code for a phone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Directory to write the playlist to")
	exportCmd.Flags().BoolVar(&exportPrintURL, "print-url", false, "Print the playlist URL instead of saving it")
	exportCmd.Flags().BoolVar(&exportQR, "qr", false, "With --print-url, also print the URL as a QR code")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	if exportPrintURL {
		u := b.PlaylistURL()
		if u == "" {
			return fmt.Errorf("no playlist available for %s", b.Label())
		}
		fmt.Println(u)
		if exportQR {
			code, err := renderQR(u)
			if err != nil {
				return err
			}
			fmt.Print(code)
		}
		return nil
	}

	name, text, err := b.ExportPlaylist(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(exportOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	dest := filepath.Join(exportOut, name)
	if err := os.WriteFile(dest, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}

	fmt.Printf("Saved %s\n", dest)
	return nil
}
