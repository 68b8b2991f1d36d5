// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Camera slot identifiers
const (
	SlotEntrance = "entrance"
	SlotExit     = "exit"
)

// AI overlay constants
const (
	// DefaultReferenceWidth is the AI model pixel width assumed when a message omits it
	DefaultReferenceWidth = 640

	// DefaultReferenceHeight is the AI model pixel height assumed when a message omits it
	DefaultReferenceHeight = 480

	// DefaultReconnectDelay is the wait before reopening a dropped AI result socket
	DefaultReconnectDelay = 3 * time.Second

	// NormalClosureReason is sent with every client-initiated socket close
	NormalClosureReason = "stream key changed or unsubscribed"
)

// Attendance constants
const (
	// DefaultLateAfter is the class start time used when nothing else is configured
	DefaultLateAfter = "09:30"

	// DefaultPollInterval is the period of the new-log poll while today is viewed
	DefaultPollInterval = 3 * time.Second

	// DateLayout is the date format the backend expects in query strings
	DateLayout = "2006-01-02"
)

// Roster constants
const (
	// MinFaceImages is the minimum number of training images per student
	MinFaceImages = 4

	// MaxFaceImages is the maximum number of training images per student
	MaxFaceImages = 50

	// DefaultStudentRole is the role assigned to students created from the dashboard
	DefaultStudentRole = "viewer"
)
