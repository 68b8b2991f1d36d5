package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the attendance log of a day to a file",
	Long: `Exports the attendance log of a day as txt, csv or xlsx (tab separated,
opens in spreadsheet apps). The file is named attendance_export_<date>.<ext>
unless --output is given.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("date", "", "Day to export (YYYY-MM-DD, default today)")
	exportCmd.Flags().Int("subject", 0, "Only logs of this subject")
	exportCmd.Flags().String("format", "csv", "Export format: txt, csv or xlsx")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default attendance_export_<date>.<ext>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	date, err := resolveDate(cmd, cfg)
	if err != nil {
		return err
	}
	format, err := attendance.ParseFormat(mustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	file, err := attendance.Export(cmd.Context(), client, date, mustGetInt(cmd, "subject"), format)
	if err != nil {
		return fmt.Errorf("failed to export attendance: %w", err)
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		output = file.Name
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	bar := progressbar.DefaultBytes(int64(len(file.Data)), "Writing "+output)
	if _, err := io.Copy(io.MultiWriter(f, bar), bytes.NewReader(file.Data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("Exported %d rows to %s\n", file.Rows, output)
	return nil
}
