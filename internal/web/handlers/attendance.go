package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler serves the attendance ledger
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// AttendanceResponse is the ledger listing. Absent is only filled for a
// single day.
type AttendanceResponse struct {
	Date    string          `json:"date,omitempty"`
	Count   int             `json:"count"`
	Records []ledger.Record `json:"records"`
	Absent  []string        `json:"absent,omitempty"`
}

// List returns the rows for ?date=YYYY-MM-DD, or every row without it
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, h.service.Today)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.service.Attendance(date)
	if records == nil {
		records = []ledger.Record{}
	}
	resp := AttendanceResponse{
		Date:    date,
		Count:   len(records),
		Records: records,
	}
	if date != "" {
		resp.Absent = h.service.Absentees(date)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Export downloads the rows as CSV in the ledger file format
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, h.service.Today)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := "attendance.csv"
	if date != "" {
		filename = fmt.Sprintf("attendance-%s.csv", date)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := ledger.WriteCSV(w, h.service.Attendance(date)); err != nil {
		log.Printf("attendance: export failed: %v", err)
	}
}

// Summary returns per-member attendance statistics
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary := h.service.Summary()
	if summary == nil {
		summary = []ledger.MemberSummary{}
	}
	respondJSON(w, http.StatusOK, summary)
}

type markRequest struct {
	Name string `json:"name"`
}

// MarkResponse reports a manual attendance entry
type MarkResponse struct {
	Status ledger.Status `json:"status"`
	Record ledger.Record `json:"record"`
}

// Mark records attendance for a member by name without a photo
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	status, rec, err := h.service.Mark(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, "marking attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, MarkResponse{Status: status, Record: rec})
}
