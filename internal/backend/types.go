package backend

// Device is a camera source reported by /cameras/discover.
type Device struct {
	Src      string `json:"src"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Readable bool   `json:"readable"`
}

// Mapping assigns source keys to camera slots (entrance, exit).
// An empty value means the slot is unassigned.
type Mapping map[string]string

// Clone returns a copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Subject is a course/class that attendance is recorded against.
type Subject struct {
	SubjectID   int     `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Section     *string `json:"section,omitempty"`
	Schedule    *string `json:"schedule,omitempty"`
}

// CreateSubjectRequest is the body of POST /subjects. Empty optionals are sent as null.
type CreateSubjectRequest struct {
	SubjectName string  `json:"subject_name"`
	Section     *string `json:"section"`
	Schedule    *string `json:"schedule"`
}

// Face is one training image of a user.
type Face struct {
	FaceID   int    `json:"face_id"`
	FilePath string `json:"file_path"`
}

// User is an enrolled student.
type User struct {
	UserID      int     `json:"user_id"`
	Name        string  `json:"name"`
	StudentCode *string `json:"student_code"`
	Role        string  `json:"role"`
	Faces       []Face  `json:"faces"`
	SubjectID   *int    `json:"subject_id"`
}

// Code returns the student code or "" when unset.
func (u *User) Code() string {
	if u.StudentCode == nil {
		return ""
	}
	return *u.StudentCode
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name        string `json:"name"`
	StudentCode string `json:"student_code"`
	Role        string `json:"role"`
	SubjectID   *int   `json:"subject_id"`
}

// UpdateUserRequest is the body of PUT /users/{id}.
type UpdateUserRequest struct {
	Name        string `json:"name"`
	StudentCode string `json:"student_code"`
	SubjectID   *int   `json:"subject_id"`
}

type createUserResponse struct {
	User User `json:"user"`
}

// FaceImage is an image to upload for face training.
type FaceImage struct {
	Filename string
	Data     []byte
}

// LogEntry is one attendance event recorded by the backend.
type LogEntry struct {
	LogID        int      `json:"log_id"`
	UserID       int      `json:"user_id"`
	UserName     string   `json:"user_name"`
	StudentCode  string   `json:"student_code"`
	Action       string   `json:"action"`
	Timestamp    string   `json:"timestamp"`
	Confidence   *float64 `json:"confidence"`
	SubjectID    *int     `json:"subject_id"`
	SnapshotPath *string  `json:"snapshot_path"`
}

// LogsQuery selects attendance logs by date range and optional subject.
// SubjectID 0 means all subjects.
type LogsQuery struct {
	StartDate string
	EndDate   string
	SubjectID int
}
