package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects",
	Long:  `Lists the subjects known to the attendance backend with their resolved class start time.`,
	RunE:  runSubjects,
}

var subjectsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a subject",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubjectsAdd,
}

var subjectsDeleteCmd = &cobra.Command{
	Use:   "delete <subject-id>",
	Short: "Delete a subject",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubjectsDelete,
}

var subjectsClassStartCmd = &cobra.Command{
	Use:   "class-start <subject-id> [HH:MM]",
	Short: "Show or set the class start time used for late detection",
	Long: `Without a time, prints the class start time of the subject.
With a time, stores it as an override of the schedule. --clear removes the
override.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubjectsClassStart,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
	subjectsCmd.AddCommand(subjectsAddCmd, subjectsDeleteCmd, subjectsClassStartCmd)

	subjectsCmd.Flags().Bool("json", false, "Output as JSON")

	subjectsAddCmd.Flags().String("section", "", "Section number")
	subjectsAddCmd.Flags().String("schedule", "", "Schedule, e.g. \"Monday 08:00-10:00\"")

	subjectsDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	subjectsClassStartCmd.Flags().Bool("clear", false, "Remove the override")
}

func parseSubjectID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject id %q", arg)
	}
	return id, nil
}

func newRosterService(cfg *config.Config) (*roster.Service, error) {
	client, err := newBackendClient(cfg)
	if err != nil {
		return nil, err
	}
	return roster.NewService(client, cfg.Dashboard.MinFaceImages, cfg.Dashboard.MaxFaceImages), nil
}

func runSubjects(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()

	subjects, err := svc.Subjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to get subjects: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(subjects)
	}
	if len(subjects) == 0 {
		fmt.Println("No subjects found.")
		return nil
	}

	resolver := attendance.NewStartResolver(settings, cfg.Dashboard.LateAfter)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSECTION\tSCHEDULE\tCLASS START")
	fmt.Fprintln(w, "--\t----\t-------\t--------\t-----------")
	for _, s := range subjects {
		schedule := ""
		if s.Schedule != nil {
			schedule = *s.Schedule
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.SubjectID, s.SubjectName, orDash(s.Section), orDash(s.Schedule),
			resolver.Resolve(ctx, s.SubjectID, schedule))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d subjects\n", len(subjects))
	return nil
}

func runSubjectsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}

	subject, err := svc.CreateSubject(cmd.Context(), roster.SubjectInput{
		Name:     args[0],
		Section:  mustGetString(cmd, "section"),
		Schedule: mustGetString(cmd, "schedule"),
	})
	if err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}

	fmt.Printf("Created subject %d: %s\n", subject.SubjectID, subject.SubjectName)
	return nil
}

func runSubjectsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseSubjectID(args[0])
	if err != nil {
		return err
	}

	if !mustGetBool(cmd, "yes") && !confirmAction(fmt.Sprintf("Delete subject %d? [y/N] ", id)) {
		fmt.Println("Aborted.")
		return nil
	}

	cfg := config.Load()
	ctx := cmd.Context()
	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}
	if err := svc.DeleteSubject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}

	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()
	if err := settings.DeleteClassStart(ctx, id); err != nil {
		fmt.Printf("Warning: failed to remove class start override: %v\n", err)
	}

	fmt.Printf("Deleted subject %d\n", id)
	return nil
}

func runSubjectsClassStart(cmd *cobra.Command, args []string) error {
	id, err := parseSubjectID(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	ctx := cmd.Context()
	settings, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer settings.Close()

	switch {
	case mustGetBool(cmd, "clear"):
		if err := settings.DeleteClassStart(ctx, id); err != nil {
			return fmt.Errorf("failed to clear class start: %w", err)
		}
		fmt.Printf("Cleared class start override of subject %d\n", id)
		return nil

	case len(args) == 2:
		hour, minute, err := attendance.ParseClock(args[1])
		if err != nil {
			return err
		}
		start := fmt.Sprintf("%02d:%02d", hour, minute)
		if err := settings.SetClassStart(ctx, id, start); err != nil {
			return fmt.Errorf("failed to set class start: %w", err)
		}
		fmt.Printf("Class start of subject %d set to %s\n", id, start)
		return nil
	}

	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}
	schedule := ""
	subjects, err := svc.Subjects(ctx)
	if err != nil {
		fmt.Printf("Warning: failed to load subject schedule: %v\n", err)
	}
	for _, s := range subjects {
		if s.SubjectID == id && s.Schedule != nil {
			schedule = *s.Schedule
		}
	}

	resolver := attendance.NewStartResolver(settings, cfg.Dashboard.LateAfter)
	fmt.Println(resolver.Resolve(ctx, id, schedule))
	return nil
}
