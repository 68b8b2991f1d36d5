package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the attendance log of a day",
	Long: `Shows the attendance log of a day with the computed status of every
entry (on time, late, exit). Defaults to today.`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().String("date", "", "Day to show (YYYY-MM-DD, default today)")
	logsCmd.Flags().Int("subject", 0, "Only logs of this subject")
	logsCmd.Flags().Bool("json", false, "Output as JSON")
}

// resolveDate returns the --date flag or today in the dashboard time zone.
func resolveDate(cmd *cobra.Command, cfg *config.Config) (string, error) {
	date := mustGetString(cmd, "date")
	if date == "" {
		return time.Now().In(cfg.Dashboard.Location()).Format(constants.DateLayout), nil
	}
	if err := attendance.ValidateDate(date); err != nil {
		return "", err
	}
	return date, nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	date, err := resolveDate(cmd, cfg)
	if err != nil {
		return err
	}
	subjectID := mustGetInt(cmd, "subject")

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()

	resolver := attendance.NewStartResolver(settings, cfg.Dashboard.LateAfter)
	view := attendance.NewView(client, resolver, cfg.Dashboard.Location())

	rows, err := view.Day(ctx, date, subjectID)
	if err != nil {
		return fmt.Errorf("failed to get attendance logs: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Printf("No attendance recorded on %s.\n", date)
		return nil
	}

	fmt.Printf("Attendance on %s (class start %s)\n\n", date, view.ClassStart(ctx, subjectID))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tCODE\tSTATUS\tCONFIDENCE")
	fmt.Fprintln(w, "----\t----\t----\t------\t----------")
	late := 0
	for _, r := range rows {
		confidence := "N/A"
		if r.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *r.Confidence)
		}
		if r.Late {
			late++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Time, r.UserName, r.StudentCode, r.Status, confidence)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d entries, %d late\n", len(rows), late)
	return nil
}
