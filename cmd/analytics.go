package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/kozaktomas/attendance-dashboard/internal/analytics"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show attendance KPIs and breakdowns for a date range",
	Long: `Shows total attendance, daily and per-student averages and the
breakdown by weekday, month, hour and subject. Only entries are counted.
Defaults to the last 30 days.`,
	RunE: runAnalytics,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)

	analyticsCmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	analyticsCmd.Flags().String("to", "", "Last day (YYYY-MM-DD, default today)")
	analyticsCmd.Flags().String("language", "en", "Locale for number formatting")
	analyticsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	loc := cfg.Dashboard.Location()

	today := time.Now().In(loc)
	to := mustGetString(cmd, "to")
	if to == "" {
		to = today.Format(constants.DateLayout)
	}
	from := mustGetString(cmd, "from")
	if from == "" {
		from = today.AddDate(0, 0, -29).Format(constants.DateLayout)
	}
	lang, err := language.Parse(mustGetString(cmd, "language"))
	if err != nil {
		return fmt.Errorf("invalid --language: %w", err)
	}

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}
	logSource, source, closeSource := initAnalyticsSource(cfg, client)
	defer closeSource()

	svc := analytics.NewService(logSource, client, loc, 0)
	svc.SetLanguage(lang)

	summary, err := svc.Summary(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("failed to compute analytics: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	fmt.Printf("Attendance %s to %s (logs from %s)\n\n", from, to, source)
	for _, k := range summary.KPIs {
		fmt.Printf("  %-32s %s\n", k.Title+":", k.Display)
	}

	printBuckets("By weekday", summary.ByWeekday)
	printBuckets("By month", summary.ByMonth)
	printBuckets("By hour", summary.ByHour)
	printBuckets("By subject", summary.BySubject)
	return nil
}

func printBuckets(title string, buckets []analytics.Bucket) {
	if len(buckets) == 0 {
		return
	}
	peak := 0
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
	}

	fmt.Printf("\n%s\n", title)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, b := range buckets {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", b.Count*30/peak)
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\n", b.Label, b.Count, bar)
	}
	w.Flush()
}
