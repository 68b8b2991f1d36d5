package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/database"
	// registers the file-backed settings store
	_ "github.com/kozaktomas/attendance-dashboard/internal/database/sqlite"
)

func newBackendClient(cfg *config.Config) (*backend.Client, error) {
	client, err := backend.New(cfg.Backend.URL, cfg.Backend.WebSocketURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// openSettings opens the settings store at SETTINGS_DB_PATH (in memory when unset).
func openSettings(cfg *config.Config) (database.SettingsStore, error) {
	store, err := database.OpenSettings(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return store, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// newProgressBar returns nil when output is machine readable.
func newProgressBar(count int, description, unit string, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
