package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// GetUsers lists enrolled students with their face images.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	users, err := doGetJSON[[]User](ctx, c, "users", "users")
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return *users, nil
}

// CreateUser creates a student and returns its id.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (int, error) {
	resp, err := doRequestJSON[createUserResponse](ctx, c, "users_create", http.MethodPost, "users", req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return resp.User.UserID, nil
}

// UpdateUser updates name, student code and subject of a student.
func (c *Client) UpdateUser(ctx context.Context, userID int, req UpdateUserRequest) error {
	if err := doRequestRaw(ctx, c, "users_update", http.MethodPut, "users/"+strconv.Itoa(userID), req); err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	return nil
}

// DeleteUser deletes a student.
func (c *Client) DeleteUser(ctx context.Context, userID int) error {
	if err := doRequestRaw(ctx, c, "users_delete", http.MethodDelete, "users/"+strconv.Itoa(userID), nil); err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	return nil
}

// UploadFaces uploads training images for a student as one multipart request.
func (c *Client) UploadFaces(ctx context.Context, userID int, images []FaceImage) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("user_id", strconv.Itoa(userID)); err != nil {
		return fmt.Errorf("could not write user_id field: %w", err)
	}
	for _, img := range images {
		part, err := writer.CreateFormFile("images", img.Filename)
		if err != nil {
			return fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(img.Data)); err != nil {
			return fmt.Errorf("could not copy file data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("could not close writer: %w", err)
	}

	resp, err := c.do(ctx, "faces_upload", http.MethodPost, "faces/upload", &body, writer.FormDataContentType(), http.StatusOK, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("upload faces for user %d: %w", userID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DeleteFace deletes one training image.
func (c *Client) DeleteFace(ctx context.Context, faceID int) error {
	if err := doRequestRaw(ctx, c, "faces_delete", http.MethodDelete, "faces/"+strconv.Itoa(faceID), nil); err != nil {
		return fmt.Errorf("delete face %d: %w", faceID, err)
	}
	return nil
}

// RefreshTraining asks the backend to rebuild its recognition model.
func (c *Client) RefreshTraining(ctx context.Context) error {
	if err := doRequestRaw(ctx, c, "train_refresh", http.MethodPost, "train/refresh", nil); err != nil {
		return fmt.Errorf("refresh training: %w", err)
	}
	return nil
}

// OpenFaceImage opens a stored training image of a student.
func (c *Client) OpenFaceImage(ctx context.Context, userID int, file string) (*Stream, error) {
	if file == "" || strings.ContainsAny(file, `/\`) || strings.Contains(file, "..") {
		return nil, fmt.Errorf("invalid face image name %q", file)
	}
	stream, err := c.openStream(ctx, "faces_image", "static/faces/train/"+strconv.Itoa(userID)+"/"+file)
	if err != nil {
		return nil, fmt.Errorf("open face image: %w", err)
	}
	return stream, nil
}
