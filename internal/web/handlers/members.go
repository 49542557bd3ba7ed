package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// MembersHandler handles roster endpoints
type MembersHandler struct {
	service *attendance.Service
}

// NewMembersHandler creates a new members handler
func NewMembersHandler(svc *attendance.Service) *MembersHandler {
	return &MembersHandler{service: svc}
}

// MemberResponse is returned after a successful enrollment
type MemberResponse struct {
	Name        string `json:"name"`
	RollNo      string `json:"roll_no"`
	Descriptors int    `json:"descriptors"`
}

// List returns every member in roster order
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	members := h.service.Members()
	if members == nil {
		members = []attendance.MemberStatus{}
	}
	respondJSON(w, http.StatusOK, members)
}

// Create enrolls a member from uploaded photos. The multipart form carries
// name, roll_no, one or more image parts and optionally one angle value per
// image.
func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	name := r.FormValue("name")
	rollNo := r.FormValue("roll_no")
	files := r.MultipartForm.File["image"]
	angles := r.MultipartForm.Value["angle"]

	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if len(files) > constants.MaxEnrollCaptures {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are accepted", constants.MaxEnrollCaptures))
		return
	}
	if len(angles) > 0 && len(angles) != len(files) {
		respondError(w, http.StatusBadRequest, "angle count must match image count")
		return
	}

	captures := make([]attendance.Capture, len(files))
	for i, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read image")
			return
		}
		captures[i].Image = data
		if len(angles) > 0 {
			captures[i].Angle = angles[i]
		}
	}

	created, err := h.service.EnrollCaptures(r.Context(), name, rollNo, captures)
	if err != nil {
		respondServiceError(w, "enrollment", err)
		return
	}
	if !created {
		respondError(w, http.StatusConflict, "member already exists")
		return
	}

	log.Printf("members: enrolled %s with %d captures", sanitizeForLog(roster.NormalizeName(name)), len(captures))
	respondJSON(w, http.StatusCreated, MemberResponse{
		Name:        roster.NormalizeName(name),
		RollNo:      rollNo,
		Descriptors: len(captures),
	})
}

type enrollDescriptorsRequest struct {
	Name        string                 `json:"name"`
	RollNo      string                 `json:"roll_no"`
	Descriptors []facematch.Descriptor `json:"descriptors"`
}

// CreateFromDescriptors enrolls a member from descriptors computed on the
// client.
func (h *MembersHandler) CreateFromDescriptors(w http.ResponseWriter, r *http.Request) {
	var req enrollDescriptorsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.Descriptors) > constants.MaxEnrollCaptures {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d descriptors are accepted", constants.MaxEnrollCaptures))
		return
	}

	created, err := h.service.Enroll(r.Context(), req.Name, req.RollNo, req.Descriptors)
	if err != nil {
		respondServiceError(w, "enrollment", err)
		return
	}
	if !created {
		respondError(w, http.StatusConflict, "member already exists")
		return
	}

	respondJSON(w, http.StatusCreated, MemberResponse{
		Name:        roster.NormalizeName(req.Name),
		RollNo:      req.RollNo,
		Descriptors: len(req.Descriptors),
	})
}

// Delete removes a member by name
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	removed, err := h.service.Remove(r.Context(), name)
	if err != nil {
		respondServiceError(w, "removal", err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}

	log.Printf("members: removed %s", sanitizeForLog(roster.NormalizeName(name)))
	respondJSON(w, http.StatusOK, map[string]any{
		"removed": true,
		"name":    roster.NormalizeName(name),
	})
}
