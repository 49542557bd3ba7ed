// Package encoder talks to the face detection and encoding service.
package encoder

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Face is one detected face.
type Face struct {
	Location   facematch.Location   `json:"location"`
	Descriptor facematch.Descriptor `json:"-"`
	Score      float64              `json:"score"`
}

// Provider detects faces in an image and encodes each of them.
// Faces are returned in detection order.
type Provider interface {
	Detect(ctx context.Context, image []byte) ([]Face, error)
}
