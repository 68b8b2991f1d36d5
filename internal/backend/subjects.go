package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// GetSubjects lists all subjects.
func (c *Client) GetSubjects(ctx context.Context) ([]Subject, error) {
	subjects, err := doGetJSON[[]Subject](ctx, c, "subjects", "subjects")
	if err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
	}
	return *subjects, nil
}

// CreateSubject creates a subject.
func (c *Client) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*Subject, error) {
	subject, err := doRequestJSON[Subject](ctx, c, "subjects_create", http.MethodPost, "subjects", req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

// DeleteSubject deletes a subject by id.
func (c *Client) DeleteSubject(ctx context.Context, subjectID int) error {
	if err := doRequestRaw(ctx, c, "subjects_delete", http.MethodDelete, "subjects/"+strconv.Itoa(subjectID), nil); err != nil {
		return fmt.Errorf("delete subject %d: %w", subjectID, err)
	}
	return nil
}
