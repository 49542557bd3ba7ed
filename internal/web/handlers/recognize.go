package handlers

import (
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// RecognizeHandler matches faces and marks attendance
type RecognizeHandler struct {
	service *attendance.Service
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(svc *attendance.Service) *RecognizeHandler {
	return &RecognizeHandler{service: svc}
}

// RecognizeResponse lists one entry per detected face
type RecognizeResponse struct {
	Count int                      `json:"count"`
	Faces []attendance.Recognition `json:"faces"`
}

func newRecognizeResponse(faces []attendance.Recognition) RecognizeResponse {
	if faces == nil {
		faces = []attendance.Recognition{}
	}
	return RecognizeResponse{Count: len(faces), Faces: faces}
}

// Recognize handles a multipart upload with a single image part
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) != 1 {
		respondError(w, http.StatusBadRequest, "exactly one image is required")
		return
	}

	data, err := readFormFile(files[0])
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	faces, err := h.service.Recognize(r.Context(), data)
	if err != nil {
		respondServiceError(w, "recognition", err)
		return
	}
	respondJSON(w, http.StatusOK, newRecognizeResponse(faces))
}

type recognizeDescriptorsRequest struct {
	Descriptors []facematch.Descriptor `json:"descriptors"`
}

// RecognizeDescriptors matches descriptors encoded on the client
func (h *RecognizeHandler) RecognizeDescriptors(w http.ResponseWriter, r *http.Request) {
	var req recognizeDescriptorsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.Descriptors) == 0 {
		respondError(w, http.StatusBadRequest, "at least one descriptor is required")
		return
	}
	if len(req.Descriptors) > constants.MaxDescriptorsPerRequest {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d descriptors are accepted", constants.MaxDescriptorsPerRequest))
		return
	}

	faces, err := h.service.RecognizeDescriptors(r.Context(), req.Descriptors)
	if err != nil {
		respondServiceError(w, "recognition", err)
		return
	}
	respondJSON(w, http.StatusOK, newRecognizeResponse(faces))
}
