package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording.json>",
	Short: "Run a landmark recording through the recognizer",
	Long: `Replay feeds a recorded session of hand landmarks through feature
extraction and gesture recognition, without a camera or landmark model, and
prints every released gesture as a wire-format JSON line.

A recording looks like:

  {"width":640,"height":480,"frames":[{"t_ms":0,"hands":[...]}, ...]}`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var replayThresholds = gesture.DefaultThresholds()

func init() {
	f := replayCmd.Flags()
	f.Float64Var(&replayThresholds.Pinch, "pinch-threshold", gesture.DefaultPinchThreshold, "Thumb-index distance in pixels below which a hand is pinching")
	f.IntVar(&replayThresholds.MinPan, "min-pan", gesture.DefaultMinPanPixels, "Minimum pan displacement in pixels")
	f.IntVar(&replayThresholds.MinZoom, "min-zoom", gesture.DefaultMinZoomPixels, "Minimum zoom displacement in pixels")
	f.IntVar(&replayThresholds.MinRotation, "min-rotation", gesture.DefaultMinRotationPixels, "Minimum rotation displacement in pixels")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := replayThresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	rec, err := replay.Load(args[0])
	if err != nil {
		return err
	}

	events := replay.Run(rec, replayThresholds, time.Now())
	return replay.WriteEvents(cmd.OutOrStdout(), events)
}
