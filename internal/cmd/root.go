// Package cmd implements the gesturecast command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gesturecast",
	Short: "Broadcast hand gestures to WebSocket subscribers",
	Long: `GestureCast watches a camera for two-handed pan and one-handed pinch
gestures (zoom with the right hand, rotate with the left) and streams each
recognized gesture as a JSON message to every connected WebSocket client.

Configuration comes from GESTURECAST_* environment variables or a .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
