// Package constants provides shared limits used by the CLI and the web API.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum multipart request size in bytes (32MB)
	MaxUploadSize = 32 << 20

	// MaxEnrollCaptures is the maximum number of photos accepted for one enrollment
	MaxEnrollCaptures = 16

	// MaxDescriptorsPerRequest limits how many pre-encoded faces one request may match
	MaxDescriptorsPerRequest = 64
)

// Recognition constants
const (
	// DefaultConcurrency is the default number of parallel encoder requests for batch recognition
	DefaultConcurrency = 4
)

// Supported image file extensions for batch recognition
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}
