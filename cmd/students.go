package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	RunE:  runStudents,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <name> <student-code> <images-dir>",
	Short: "Enroll a student with training images",
	Long: `Creates a student, uploads every .jpg/.jpeg/.png image from images-dir
as face training data and refreshes the recognition model.`,
	Args: cobra.ExactArgs(3),
	RunE: runStudentsAdd,
}

var studentsDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a student and their face images",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsDelete,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsAddCmd, studentsDeleteCmd)

	studentsCmd.Flags().Bool("json", false, "Output as JSON")
	studentsCmd.Flags().Int("subject", 0, "Only students of this subject")

	studentsAddCmd.Flags().Int("subject", 0, "Subject to enroll the student in")

	studentsDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// readFaceImages loads the training images in dir, sorted by name.
func readFaceImages(dir string) ([]backend.FaceImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	bar := newProgressBar(len(names), "Reading images", "images", false)
	images := make([]backend.FaceImage, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		images = append(images, backend.FaceImage{Filename: name, Data: data})
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	return images, nil
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}

	students, err := svc.Students(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get students: %w", err)
	}
	if subject := mustGetInt(cmd, "subject"); subject > 0 {
		filtered := students[:0]
		for _, s := range students {
			if s.SubjectID != nil && *s.SubjectID == subject {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(students)
	}
	if len(students) == 0 {
		fmt.Println("No students found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCODE\tSUBJECT\tIMAGES")
	fmt.Fprintln(w, "--\t----\t----\t-------\t------")
	for i := range students {
		s := &students[i]
		subject := "-"
		if s.SubjectID != nil {
			subject = strconv.Itoa(*s.SubjectID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", s.UserID, s.Name, orDash(s.StudentCode), subject, len(s.Faces))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d students\n", len(students))
	return nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	name, code, dir := args[0], args[1], args[2]

	cfg := config.Load()
	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}

	images, err := readFaceImages(dir)
	if err != nil {
		return err
	}

	fmt.Printf("Uploading %d images for %s...\n", len(images), name)
	userID, err := svc.CreateStudent(cmd.Context(), roster.StudentInput{
		Name:        name,
		StudentCode: code,
		SubjectID:   mustGetInt(cmd, "subject"),
		Images:      images,
	})
	if err != nil {
		if userID > 0 {
			return fmt.Errorf("student %d was created but not fully enrolled: %w", userID, err)
		}
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	fmt.Printf("Enrolled %s as user %d with %d images\n", name, userID, len(images))
	return nil
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	if !mustGetBool(cmd, "yes") && !confirmAction(fmt.Sprintf("Delete student %d and all face images? [y/N] ", id)) {
		fmt.Println("Aborted.")
		return nil
	}

	cfg := config.Load()
	svc, err := newRosterService(cfg)
	if err != nil {
		return err
	}
	if err := svc.DeleteStudent(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	fmt.Printf("Deleted student %d\n", id)
	return nil
}
