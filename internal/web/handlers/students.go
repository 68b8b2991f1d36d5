package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

// FaceImageOpener opens a stored training image of a student.
type FaceImageOpener interface {
	OpenFaceImage(ctx context.Context, userID int, file string) (*backend.Stream, error)
}

// StudentsHandler handles student endpoints
type StudentsHandler struct {
	roster *roster.Service
	images FaceImageOpener
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(r *roster.Service, images FaceImageOpener) *StudentsHandler {
	return &StudentsHandler{roster: r, images: images}
}

// StudentResponse is a student with the image limits of the edit form
type StudentResponse struct {
	backend.User
	ImageCount int `json:"image_count"`
}

func newStudentResponse(u backend.User) StudentResponse {
	if u.Faces == nil {
		u.Faces = []backend.Face{}
	}
	return StudentResponse{User: u, ImageCount: len(u.Faces)}
}

// studentForm is the parsed multipart add/edit form.
type studentForm struct {
	Name        string
	StudentCode string
	SubjectID   int
	Images      []backend.FaceImage
}

// readImages loads every uploaded file into memory.
func readImages(files []*multipart.FileHeader) ([]backend.FaceImage, error) {
	images := make([]backend.FaceImage, 0, len(files))
	for _, fh := range files {
		data, err := func() ([]byte, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
			}
			defer f.Close()
			return io.ReadAll(f)
		}()
		if err != nil {
			return nil, err
		}
		images = append(images, backend.FaceImage{Filename: filepath.Base(fh.Filename), Data: data})
	}
	return images, nil
}

func parseStudentForm(w http.ResponseWriter, r *http.Request, maxImages int) (*studentForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}

	form := &studentForm{
		Name:        r.FormValue("name"),
		StudentCode: r.FormValue("student_code"),
	}
	if raw := strings.TrimSpace(r.FormValue("subject_id")); raw != "" && raw != "none" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			return nil, errors.New("invalid subject_id")
		}
		form.SubjectID = id
	}

	files := r.MultipartForm.File["images"]
	if len(files) > maxImages {
		return nil, fmt.Errorf("at most %d images are allowed", maxImages)
	}
	images, err := readImages(files)
	if err != nil {
		return nil, err
	}
	form.Images = images
	return form, nil
}

// List returns all students.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.roster.Students(r.Context())
	if err != nil {
		respondServiceError(w, "list students", err)
		return
	}

	out := make([]StudentResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newStudentResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// Create enrolls a student from a multipart form (name, student_code,
// subject_id, images...).
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := parseStudentForm(w, r, h.roster.MaxImages())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := h.roster.CreateStudent(r.Context(), roster.StudentInput{
		Name:        form.Name,
		StudentCode: form.StudentCode,
		SubjectID:   form.SubjectID,
		Images:      form.Images,
	})
	if err != nil {
		respondServiceError(w, "create student", err)
		return
	}

	log.Printf("[students] enrolled %q as %d with %d images", sanitizeForLog(form.Name), userID, len(form.Images))
	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":       userID,
		"images_loaded": len(form.Images),
	})
}

// Update applies the edit form to a student. New images are optional.
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	form, err := parseStudentForm(w, r, h.roster.MaxImages())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, ok := h.loadStudent(w, r, id)
	if !ok {
		return
	}

	result, err := h.roster.UpdateStudent(r.Context(), *current, roster.StudentUpdate{
		Name:        form.Name,
		StudentCode: form.StudentCode,
		SubjectID:   form.SubjectID,
		NewImages:   form.Images,
	})
	if err != nil {
		respondServiceError(w, fmt.Sprintf("update student %d", id), err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Delete removes a student.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	if err := h.roster.DeleteStudent(r.Context(), id); err != nil {
		respondServiceError(w, fmt.Sprintf("delete student %d", id), err)
		return
	}

	log.Printf("[students] deleted %d", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFace removes one training image unless the student would drop
// below the minimum image count.
func (h *StudentsHandler) DeleteFace(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}
	faceID, ok := intParam(r, "faceId")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	current, ok := h.loadStudent(w, r, id)
	if !ok {
		return
	}

	if err := h.roster.DeleteFace(r.Context(), *current, faceID); err != nil {
		respondServiceError(w, fmt.Sprintf("delete face %d", faceID), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FaceImage proxies a training image, downsized when ?size= is given.
func (h *StudentsHandler) FaceImage(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}
	file := chi.URLParam(r, "file")
	if file == "" || file != filepath.Base(file) || strings.Contains(file, "..") {
		respondError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	size, ok := thumbnailSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid size")
		return
	}

	stream, err := h.images.OpenFaceImage(r.Context(), id, file)
	if err != nil {
		respondServiceError(w, "open face image", err)
		return
	}
	serveImage(w, stream, size)
}

func (h *StudentsHandler) loadStudent(w http.ResponseWriter, r *http.Request, id int) (*backend.User, bool) {
	current, err := h.roster.Student(r.Context(), id)
	if errors.Is(err, roster.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return nil, false
	}
	if err != nil {
		respondServiceError(w, fmt.Sprintf("load student %d", id), err)
		return nil, false
	}
	return current, true
}
