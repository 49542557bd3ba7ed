package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

func TestMembersHandler_List(t *testing.T) {
	inactive := roster.Member{Name: "CAROL", RollNo: "R3", Active: false}
	env := newTestEnv(t, []roster.Member{testAlice, inactive})
	handler := NewMembersHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/members", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var members []attendance.MemberStatus
	parseJSONResponse(t, recorder, &members)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Name != "ALICE" || !members[0].Active || members[0].Descriptors != 1 {
		t.Errorf("first member = %+v", members[0])
	}
	if members[1].Name != "CAROL" || members[1].Active {
		t.Errorf("second member = %+v", members[1])
	}
}

func TestMembersHandler_ListEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewMembersHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/members", nil))

	if got := recorder.Body.String(); got != "[]\n" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestMembersHandler_Create(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewMembersHandler(env.svc)

	req := multipartRequest(t, "POST", "/api/v1/members",
		map[string][]string{
			"name":    {"  bob "},
			"roll_no": {"R2"},
			"angle":   {"Center", "Left"},
		},
		[]formFile{
			{field: "image", name: "center.jpg", content: "bob.jpg"},
			{field: "image", name: "left.jpg", content: "bob.jpg"},
		})
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp MemberResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Name != "BOB" || resp.RollNo != "R2" || resp.Descriptors != 2 {
		t.Errorf("response = %+v", resp)
	}

	saved := env.persist.Members()
	if len(saved) != 1 || saved[0].Name != "BOB" || len(saved[0].Encodings) != 2 {
		t.Errorf("persisted roster = %+v", saved)
	}
}

func TestMembersHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string][]string
		files      []formFile
		wantStatus int
		wantError  string
	}{
		{
			name:       "existing member",
			values:     map[string][]string{"name": {"alice"}, "roll_no": {"R9"}},
			files:      []formFile{{field: "image", name: "a.jpg", content: "bob.jpg"}},
			wantStatus: http.StatusConflict,
			wantError:  "member already exists",
		},
		{
			name:       "no images",
			values:     map[string][]string{"name": {"bob"}, "roll_no": {"R2"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "at least one image is required",
		},
		{
			name:       "angle count mismatch",
			values:     map[string][]string{"name": {"bob"}, "roll_no": {"R2"}, "angle": {"Center", "Left"}},
			files:      []formFile{{field: "image", name: "a.jpg", content: "bob.jpg"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "angle count must match image count",
		},
		{
			name:       "missing roll number",
			values:     map[string][]string{"name": {"bob"}},
			files:      []formFile{{field: "image", name: "a.jpg", content: "bob.jpg"}},
			wantStatus: http.StatusBadRequest,
			wantError:  roster.ErrEmptyRollNo.Error(),
		},
		{
			name:       "no face",
			values:     map[string][]string{"name": {"bob"}, "roll_no": {"R2"}},
			files:      []formFile{{field: "image", name: "a.jpg", content: "empty.jpg"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "capture 1: no face detected",
		},
		{
			name:       "unknown angle",
			values:     map[string][]string{"name": {"bob"}, "roll_no": {"R2"}, "angle": {"Behind"}},
			files:      []formFile{{field: "image", name: "a.jpg", content: "bob.jpg"}},
			wantStatus: http.StatusBadRequest,
			wantError:  `unknown capture angle: "Behind"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, []roster.Member{testAlice})
			handler := NewMembersHandler(env.svc)

			recorder := httptest.NewRecorder()
			handler.Create(recorder, multipartRequest(t, "POST", "/api/v1/members", tt.values, tt.files))

			assertStatusCode(t, recorder, tt.wantStatus)
			assertJSONError(t, recorder, tt.wantError)
			if got := len(env.persist.Members()); got != 1 {
				t.Errorf("roster has %d members, want 1", got)
			}
		})
	}
}

func TestMembersHandler_CreateFromDescriptors(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewMembersHandler(env.svc)

	recorder := httptest.NewRecorder()
	handler.CreateFromDescriptors(recorder, jsonRequest("POST", "/api/v1/members/descriptors",
		`{"name": "dave", "roll_no": "R4", "descriptors": [[0.5, 0.5, 0.5]]}`))

	assertStatusCode(t, recorder, http.StatusCreated)

	recorder = httptest.NewRecorder()
	handler.CreateFromDescriptors(recorder, jsonRequest("POST", "/api/v1/members/descriptors",
		`{"name": "eve", "roll_no": "R5", "descriptors": [[0.5, 0.5], [1]]}`))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, roster.ErrDescriptorDimension.Error())
}

func TestMembersHandler_Delete(t *testing.T) {
	env := newTestEnv(t, []roster.Member{testAlice})
	handler := NewMembersHandler(env.svc)

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/members/alice", nil), map[string]string{"name": "alice"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if got := len(env.persist.Members()); got != 0 {
		t.Errorf("roster has %d members after delete, want 0", got)
	}

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "member not found")
}
