/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Persistent flags shared by every command.
var (
	serverURL string
	logLevel  string
	logFile   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crate",
	Short: "Browse and play a remote music library",
	Long: `crate is a terminal player for a music library served over HTTP.

It browses the server's folder tree, plays folders or single tracks
through mpv, and keeps a queue with shuffle and wrap-around. The
current track can be shown as Discord Rich Presence, sent to Last.fm
as "now playing", and logged to a local play history.

Use 'crate tui' for the interactive browser, or 'crate play' for a
headless session driven from stdin.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Music server URL (overrides server_url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
}
