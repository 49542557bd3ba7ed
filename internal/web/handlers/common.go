package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps an error from the attendance service to a status
// code. Validation problems are reported to the client, anything else is
// logged and hidden behind a generic message.
func respondServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, roster.ErrEmptyName),
		errors.Is(err, roster.ErrEmptyRollNo),
		errors.Is(err, roster.ErrNoDescriptors),
		errors.Is(err, roster.ErrDescriptorDimension),
		errors.Is(err, attendance.ErrNoFace),
		errors.Is(err, attendance.ErrMultipleFaces),
		errors.Is(err, attendance.ErrNoCaptures),
		errors.Is(err, attendance.ErrUnknownAngle):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, encoder.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, encoder.ErrInvalidImage.Error())
	case errors.Is(err, ledger.ErrUnknownMember):
		respondError(w, http.StatusNotFound, "member not found")
	case errors.Is(err, attendance.ErrNoProvider):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("%s failed: %v", action, err)
		respondError(w, http.StatusInternalServerError, action+" failed")
	}
}

// decodeJSONBody decodes a size-limited JSON body into v. On failure it
// writes the error response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// readFormFile reads an uploaded file part.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return data, nil
}

// parseDateParam validates an optional YYYY-MM-DD query value. "today" is
// resolved with the ledger clock.
func parseDateParam(r *http.Request, today func() string) (string, error) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	switch date {
	case "":
		return "", nil
	case "today":
		return today(), nil
	}
	if _, err := time.Parse(ledger.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
