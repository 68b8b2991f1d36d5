package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/camera"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Show and change camera slot assignments",
}

var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List camera slots and their assigned sources",
	RunE:  runCamerasList,
}

var camerasDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List readable camera sources found by the backend",
	RunE:  runCamerasDevices,
}

var camerasAssignCmd = &cobra.Command{
	Use:   "assign <slot> [source]",
	Short: "Assign a camera source to a slot",
	Long: `Assign a camera source to a slot (e.g. entrance, exit).
Omitting the source clears the slot.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCamerasAssign,
}

var camerasHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent source assignments",
	RunE:  runCamerasHistory,
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	camerasCmd.AddCommand(camerasListCmd, camerasDevicesCmd, camerasAssignCmd, camerasHistoryCmd)

	camerasListCmd.Flags().Bool("json", false, "Output as JSON")
	camerasDevicesCmd.Flags().Bool("json", false, "Output as JSON")
	camerasHistoryCmd.Flags().Bool("json", false, "Output as JSON")
	camerasHistoryCmd.Flags().Int("limit", 20, "Number of assignments to show")
}

// loadSelector returns a selector with the backend's current mapping.
func loadSelector(ctx context.Context, cfg *config.Config) (*camera.Selector, error) {
	client, err := newBackendClient(cfg)
	if err != nil {
		return nil, err
	}
	selector := camera.NewSelector(client, cfg.Dashboard.Slots)
	if err := selector.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load camera config: %w", err)
	}
	return selector, nil
}

func runCamerasList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	selector, err := loadSelector(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(selector.Mapping())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tSOURCE")
	fmt.Fprintln(w, "----\t------")
	for _, slot := range selector.Slots() {
		source := selector.CurrentSource(slot)
		if source == "" {
			source = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\n", slot, source)
	}
	return w.Flush()
}

func runCamerasDevices(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	devices := camera.NewSelector(client, cfg.Dashboard.Slots).Devices(cmd.Context())
	if mustGetBool(cmd, "json") {
		return outputJSON(devices)
	}
	if len(devices) == 0 {
		fmt.Println("No readable camera sources found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tRESOLUTION")
	fmt.Fprintln(w, "------\t----------")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%dx%d\n", d.Src, d.Width, d.Height)
	}
	return w.Flush()
}

func runCamerasAssign(cmd *cobra.Command, args []string) error {
	slot := args[0]
	source := ""
	if len(args) == 2 {
		source = args[1]
	}

	cfg := config.Load()
	ctx := cmd.Context()

	selector, err := loadSelector(ctx, cfg)
	if err != nil {
		return err
	}
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()
	selector.SetRecorder(settings)

	if err := selector.AssignSource(ctx, slot, source); err != nil {
		return fmt.Errorf("failed to assign %s: %w", slot, err)
	}

	if source == "" {
		fmt.Printf("Cleared %s\n", slot)
	} else {
		fmt.Printf("Assigned source %s to %s\n", source, slot)
	}
	return nil
}

func runCamerasHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()

	history, err := settings.Assignments(cmd.Context(), mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to read assignment history: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(history)
	}
	if len(history) == 0 {
		fmt.Println("No assignments recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSLOT\tSOURCE")
	fmt.Fprintln(w, "----\t----\t------")
	for _, a := range history {
		source := a.Source
		if source == "" {
			source = "(cleared)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.AssignedAt.Local().Format("2006-01-02 15:04:05"), a.Slot, source)
	}
	return w.Flush()
}
