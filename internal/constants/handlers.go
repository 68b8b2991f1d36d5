// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Thumbnail constants
const (
	// DefaultThumbnailSize is the longest edge of snapshot and face thumbnails
	DefaultThumbnailSize = 320

	// MaxThumbnailSize caps the ?size= parameter of thumbnail endpoints
	MaxThumbnailSize = 1920
)

// File upload constants
const (
	// MaxUploadSize is the maximum student form upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)
