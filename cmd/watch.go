package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/camera"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch <slot>",
	Short: "Print live recognition results of a camera slot",
	Long: `Connect to the AI result socket of a camera slot and print every
detection update. Boxes are projected onto --width x --height, the size of
the video element the dashboard would draw on.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Int("width", 640, "Display width to project boxes onto")
	watchCmd.Flags().Int("height", 480, "Display height to project boxes onto")
	watchCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	watchCmd.Flags().Bool("json", false, "Output each update as JSON")
}

func runWatch(cmd *cobra.Command, args []string) error {
	slot := args[0]
	width := float64(mustGetInt(cmd, "width"))
	height := float64(mustGetInt(cmd, "height"))
	duration := mustGetDuration(cmd, "duration")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	selector, err := loadSelector(ctx, cfg)
	if err != nil {
		return err
	}
	if !selector.HasSlot(slot) {
		return fmt.Errorf("unknown slot %q (configured: %s)", slot, strings.Join(selector.Slots(), ", "))
	}
	source := selector.CurrentSource(slot)
	if source == "" {
		return fmt.Errorf("no camera source assigned to %s", slot)
	}

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}
	d := cfg.Dashboard
	channel := camera.NewChannel(slot, camera.ChannelOptions{
		URL:        client.AIResultsURL,
		RetryDelay: d.ReconnectDelay,
		Reference:  camera.Reference{Width: float64(d.ReferenceWidth), Height: float64(d.ReferenceHeight)},
	})
	defer channel.Close()

	frames, cancel := channel.Subscribe()
	defer cancel()
	channel.SetSource(source)

	if !jsonOutput {
		fmt.Printf("Watching %s (source %s), press Ctrl+C to stop\n", slot, source)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			boxes := camera.Overlay(frame, width, height)
			if jsonOutput {
				if err := outputJSON(boxes); err != nil {
					return err
				}
				continue
			}
			printDetections(frame, boxes)
		}
	}
}

func printDetections(frame camera.Frame, boxes []camera.OverlayBox) {
	fmt.Printf("[%s] %d face(s)\n", frame.UpdatedAt.Local().Format("15:04:05"), len(boxes))
	for _, b := range boxes {
		status := "unknown"
		if b.Matched {
			status = "matched"
		}
		similarity := ""
		if b.Similarity != nil {
			similarity = fmt.Sprintf(" %.2f", *b.Similarity)
		}
		fmt.Printf("  %-24s %-8s%s  at %.0f,%.0f size %.0fx%.0f\n",
			b.Label, status, similarity, b.Left, b.Top, b.Width, b.Height)
	}
}
