package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var testRecords = []ledger.Record{
	{RollNo: "R1", Name: "ALICE", Date: "2024-02-28", Time: "08:00:00"},
	{RollNo: "R1", Name: "ALICE", Date: "2024-02-29", Time: "08:10:00"},
	{RollNo: "R2", Name: "BOB", Date: "2024-02-29", Time: "09:00:00"},
}

func TestAttendanceHandler_List(t *testing.T) {
	env := newTestEnv(t, []roster.Member{testAlice}, testRecords...)
	handler := NewAttendanceHandler(env.svc)

	tests := []struct {
		name      string
		query     string
		wantCount  int
		wantDate   string
		wantAbsent []string
	}{
		{"all rows", "", 3, "", nil},
		{"one day", "?date=2024-02-29", 2, "2024-02-29", nil},
		{"today without rows", "?date=today", 0, "2024-03-01", []string{"ALICE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance"+tt.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)

			var resp AttendanceResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Count != tt.wantCount || len(resp.Records) != tt.wantCount {
				t.Errorf("count = %d (%d records), want %d", resp.Count, len(resp.Records), tt.wantCount)
			}
			if resp.Date != tt.wantDate {
				t.Errorf("date = %q, want %q", resp.Date, tt.wantDate)
			}
			if resp.Records == nil {
				t.Error("records must be an array, not null")
			}
			if !slices.Equal(resp.Absent, tt.wantAbsent) {
				t.Errorf("absent = %v, want %v", resp.Absent, tt.wantAbsent)
			}
		})
	}
}

func TestAttendanceHandler_ListInvalidDate(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewAttendanceHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance?date=yesterday", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceHandler_Export(t *testing.T) {
	env := newTestEnv(t, nil, testRecords...)
	handler := NewAttendanceHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.Export(recorder, httptest.NewRequest("GET", "/api/v1/attendance/export?date=2024-02-29", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "text/csv; charset=utf-8")
	if got := recorder.Header().Get("Content-Disposition"); got != `attachment; filename="attendance-2024-02-29.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	rows, err := csv.NewReader(recorder.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	want := [][]string{
		{"Roll No", "Name", "Date", "Time"},
		{"R1", "ALICE", "2024-02-29", "08:10:00"},
		{"R2", "BOB", "2024-02-29", "09:00:00"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestAttendanceHandler_Summary(t *testing.T) {
	env := newTestEnv(t, nil, testRecords...)
	handler := NewAttendanceHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.Summary(recorder, httptest.NewRequest("GET", "/api/v1/attendance/summary", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var summary []ledger.MemberSummary
	parseJSONResponse(t, recorder, &summary)
	if len(summary) != 2 {
		t.Fatalf("expected 2 members in summary, got %d", len(summary))
	}
	for _, s := range summary {
		if s.RollNo == "R1" && s.DaysPresent != 2 {
			t.Errorf("R1 days present = %d, want 2", s.DaysPresent)
		}
	}
}

func TestAttendanceHandler_Mark(t *testing.T) {
	env := newTestEnv(t, []roster.Member{testAlice})
	handler := NewAttendanceHandler(env.svc)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       ledger.Status
	}{
		{"first mark", `{"name": "alice"}`, http.StatusOK, ledger.Recorded},
		{"second mark", `{"name": "ALICE"}`, http.StatusOK, ledger.AlreadyRecorded},
		{"unknown member", `{"name": "mallory"}`, http.StatusNotFound, 0},
		{"missing name", `{}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Mark(recorder, jsonRequest("POST", "/api/v1/attendance", tt.body))

			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Status string        `json:"status"`
				Record ledger.Record `json:"record"`
			}
			parseJSONResponse(t, recorder, &resp)
			if resp.Status != tt.want.String() {
				t.Errorf("status = %q, want %q", resp.Status, tt.want)
			}
			if resp.Record.RollNo != "R1" || resp.Record.Date != "2024-03-01" {
				t.Errorf("record = %+v", resp.Record)
			}
		})
	}
}
