package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendance-dashboard",
	Short: "Operator dashboard for the face recognition attendance system",
	Long: `Attendance Dashboard serves the operator UI of a face recognition
attendance system. It proxies the camera streams of the attendance backend,
draws the live recognition overlay, manages subjects and students, and shows
attendance logs and analytics. The same commands are available from the
terminal for scripting.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
