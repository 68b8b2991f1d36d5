// Package roster implements the subject and student management workflows.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// ValidationError is a form error shown next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrNotFound is returned when a student does not exist.
var ErrNotFound = errors.New("student not found")

// Backend is the part of the attendance backend the roster uses.
type Backend interface {
	GetSubjects(ctx context.Context) ([]backend.Subject, error)
	CreateSubject(ctx context.Context, req backend.CreateSubjectRequest) (*backend.Subject, error)
	DeleteSubject(ctx context.Context, subjectID int) error
	GetUsers(ctx context.Context) ([]backend.User, error)
	CreateUser(ctx context.Context, req backend.CreateUserRequest) (int, error)
	UpdateUser(ctx context.Context, userID int, req backend.UpdateUserRequest) error
	DeleteUser(ctx context.Context, userID int) error
	UploadFaces(ctx context.Context, userID int, images []backend.FaceImage) error
	DeleteFace(ctx context.Context, faceID int) error
	RefreshTraining(ctx context.Context) error
}

// Service runs roster workflows against the backend.
type Service struct {
	backend   Backend
	minImages int
	maxImages int
}

// NewService creates a roster service. Non-positive bounds fall back to 4 and 50.
func NewService(b Backend, minImages, maxImages int) *Service {
	if minImages <= 0 {
		minImages = constants.MinFaceImages
	}
	if maxImages < minImages {
		maxImages = constants.MaxFaceImages
	}
	return &Service{backend: b, minImages: minImages, maxImages: maxImages}
}

// MinImages is the minimum number of training images per student.
func (s *Service) MinImages() int { return s.minImages }

// MaxImages is the maximum number of training images per student.
func (s *Service) MaxImages() int { return s.maxImages }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalID(id int) *int {
	if id <= 0 {
		return nil
	}
	return &id
}

// SubjectInput is the add-subject form.
type SubjectInput struct {
	Name     string `json:"subject_name"`
	Section  string `json:"section"`
	Schedule string `json:"schedule"`
}

// Validate checks the subject form.
func (in SubjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "subject_name", Message: "subject name is required"}
	}
	if section := strings.TrimSpace(in.Section); section != "" && !isDigits(section) {
		return &ValidationError{Field: "section", Message: "section must contain digits only"}
	}
	return nil
}

// Subjects lists all subjects.
func (s *Service) Subjects(ctx context.Context) ([]backend.Subject, error) {
	return s.backend.GetSubjects(ctx)
}

// CreateSubject validates and creates a subject. Empty optional fields are sent as null.
func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (*backend.Subject, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.backend.CreateSubject(ctx, backend.CreateSubjectRequest{
		SubjectName: strings.TrimSpace(in.Name),
		Section:     optional(in.Section),
		Schedule:    optional(in.Schedule),
	})
}

// DeleteSubject deletes a subject.
func (s *Service) DeleteSubject(ctx context.Context, subjectID int) error {
	return s.backend.DeleteSubject(ctx, subjectID)
}

// Students lists all students.
func (s *Service) Students(ctx context.Context) ([]backend.User, error) {
	return s.backend.GetUsers(ctx)
}

// Student returns one student by id.
func (s *Service) Student(ctx context.Context, userID int) (*backend.User, error) {
	users, err := s.backend.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].UserID == userID {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// StudentInput is the add-student form.
type StudentInput struct {
	Name        string
	StudentCode string
	SubjectID   int
	Images      []backend.FaceImage
}

func validateIdentity(name, code string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "student name is required"}
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return &ValidationError{Field: "student_code", Message: "student code is required"}
	}
	if !isDigits(code) {
		return &ValidationError{Field: "student_code", Message: "student code must contain digits only"}
	}
	return nil
}

func (s *Service) validateImageCount(total int) error {
	if total < s.minImages {
		return &ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at least %d images are required (%d missing)", s.minImages, s.minImages-total),
		}
	}
	if total > s.maxImages {
		return &ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images are allowed", s.maxImages),
		}
	}
	return nil
}

// CreateStudent creates the user, uploads the images and refreshes training.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (int, error) {
	if err := validateIdentity(in.Name, in.StudentCode); err != nil {
		return 0, err
	}
	if err := s.validateImageCount(len(in.Images)); err != nil {
		return 0, err
	}

	userID, err := s.backend.CreateUser(ctx, backend.CreateUserRequest{
		Name:        strings.TrimSpace(in.Name),
		StudentCode: strings.TrimSpace(in.StudentCode),
		Role:        constants.DefaultStudentRole,
		SubjectID:   optionalID(in.SubjectID),
	})
	if err != nil {
		return 0, err
	}

	if err := s.backend.UploadFaces(ctx, userID, in.Images); err != nil {
		return userID, fmt.Errorf("student created but image upload failed: %w", err)
	}
	if err := s.backend.RefreshTraining(ctx); err != nil {
		log.Printf("[roster] training refresh after creating student %d failed: %v", userID, err)
	}
	return userID, nil
}

// StudentUpdate is the edit-student form.
type StudentUpdate struct {
	Name        string
	StudentCode string
	SubjectID   int
	NewImages   []backend.FaceImage
}

// UpdateResult reports what an update changed.
type UpdateResult struct {
	InfoUpdated     bool `json:"info_updated"`
	ImagesAdded     int  `json:"images_added"`
	TrainingRefresh bool `json:"training_refreshed"`
}

// UpdateStudent applies the edit form to current. Info is only sent when
// name, code or subject changed; training is refreshed once when the name
// changed or images were added.
func (s *Service) UpdateStudent(ctx context.Context, current backend.User, upd StudentUpdate) (*UpdateResult, error) {
	if err := s.validateImageCount(len(current.Faces) + len(upd.NewImages)); err != nil {
		return nil, err
	}
	if err := validateIdentity(upd.Name, upd.StudentCode); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(upd.Name)
	code := strings.TrimSpace(upd.StudentCode)
	currentSubject := 0
	if current.SubjectID != nil {
		currentSubject = *current.SubjectID
	}
	newSubject := upd.SubjectID
	if newSubject < 0 {
		newSubject = 0
	}

	result := &UpdateResult{}
	needsTrain := false

	if name != current.Name || code != current.Code() || newSubject != currentSubject {
		err := s.backend.UpdateUser(ctx, current.UserID, backend.UpdateUserRequest{
			Name:        name,
			StudentCode: code,
			SubjectID:   optionalID(newSubject),
		})
		if err != nil {
			return nil, err
		}
		result.InfoUpdated = true
		if name != current.Name {
			needsTrain = true
		}
	}

	if len(upd.NewImages) > 0 {
		if err := s.backend.UploadFaces(ctx, current.UserID, upd.NewImages); err != nil {
			return result, err
		}
		result.ImagesAdded = len(upd.NewImages)
		needsTrain = true
	}

	if needsTrain {
		if err := s.backend.RefreshTraining(ctx); err != nil {
			log.Printf("[roster] training refresh after updating student %d failed: %v", current.UserID, err)
		} else {
			result.TrainingRefresh = true
		}
	}
	return result, nil
}

// DeleteStudent deletes a student.
func (s *Service) DeleteStudent(ctx context.Context, userID int) error {
	return s.backend.DeleteUser(ctx, userID)
}

// DeleteFace removes one training image of current. Deleting is refused when
// it would leave fewer than the minimum number of images.
func (s *Service) DeleteFace(ctx context.Context, current backend.User, faceID int) error {
	found := false
	for _, f := range current.Faces {
		if f.FaceID == faceID {
			found = true
			break
		}
	}
	if !found {
		return &ValidationError{Field: "face_id", Message: fmt.Sprintf("image %d does not belong to this student", faceID)}
	}
	if len(current.Faces) <= s.minImages {
		return &ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at least %d images are required; this image cannot be deleted", s.minImages),
		}
	}
	return s.backend.DeleteFace(ctx, faceID)
}
