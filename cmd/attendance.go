package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/config"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Start or stop attendance recording on the backend",
}

var attendanceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start recording attendance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient(config.Load())
		if err != nil {
			return err
		}
		if err := client.StartAttendance(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start attendance: %w", err)
		}
		fmt.Println("Attendance recording started")
		return nil
	},
}

var attendanceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop recording attendance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient(config.Load())
		if err != nil {
			return err
		}
		if err := client.StopAttendance(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop attendance: %w", err)
		}
		fmt.Println("Attendance recording stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceStartCmd, attendanceStopCmd)
}
