package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/session-scheduler/internal/attendance"
	"github.com/example/session-scheduler/internal/booking"
	"github.com/example/session-scheduler/internal/capacity"
	"github.com/example/session-scheduler/internal/catalog"
	"github.com/example/session-scheduler/internal/reader"
	"github.com/example/session-scheduler/internal/testfixtures"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := testfixtures.NewStoreRepository(t)
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("http")

	catalogSvc := catalog.New(repo, clock.NowFunc(), ids.NextFunc(), nil)
	ledger := capacity.New(repo)
	bookingSvc := booking.New(repo, ledger, clock.NowFunc(), ids.NextFunc())
	readerSvc := reader.New(repo, 0)
	attendanceSvc := attendance.New(repo, attendance.DefaultWindow(), clock.NowFunc(), 0)

	return NewRouter(RouterConfig{
		Programs:   NewProgramHandler(catalogSvc, nil),
		Locations:  NewLocationHandler(catalogSvc, nil),
		Schedules:  NewScheduleHandler(catalogSvc, nil),
		Exceptions: NewExceptionHandler(catalogSvc, nil),
		Sessions:   NewSessionHandler(readerSvc, nil),
		Bookings:   NewBookingHandler(bookingSvc, repo, nil),
		Attendance: NewAttendanceHandler(attendanceSvc, repo, nil),
		Middleware: []func(http.Handler) http.Handler{CORS, DevClaimsMiddleware},
	})
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(payload)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("X-Verified-Tenant-Id", "tenant-a")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestProgramCRUDOverHTTP(t *testing.T) {
	handler := newTestRouter(t)

	createRec := doRequest(t, handler, http.MethodPost, "/scheduling/programs", map[string]any{
		"name": "Youth Swim",
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", createRec.Code, createRec.Body.String())
	}
	var created struct {
		ProgramID string `json:"programId"`
	}
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ProgramID == "" {
		t.Fatal("expected a generated programId")
	}

	getRec := doRequest(t, handler, http.MethodGet, "/scheduling/programs?programId="+created.ProgramID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", getRec.Code, getRec.Body.String())
	}

	deleteRec := doRequest(t, handler, http.MethodDelete, "/scheduling/programs?programId="+created.ProgramID, nil)
	if deleteRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", deleteRec.Code)
	}

	missingRec := doRequest(t, handler, http.MethodGet, "/scheduling/programs?programId="+created.ProgramID, nil)
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missingRec.Code)
	}
}

func TestProgramCreateValidationFailureReturns400(t *testing.T) {
	handler := newTestRouter(t)

	rec := doRequest(t, handler, http.MethodPost, "/scheduling/programs", map[string]any{
		"name": "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp validationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.FieldErrors) == 0 {
		t.Fatal("expected fieldErrors to be populated")
	}
}

func TestBookingAndCheckInOverHTTP(t *testing.T) {
	handler := newTestRouter(t)

	scheduleRec := doRequest(t, handler, http.MethodPost, "/scheduling/schedules", map[string]any{
		"type":         "SESSION",
		"programId":    "prog1",
		"timezone":     "America/New_York",
		"start":        "2024-01-08T09:00:00",
		"end":          "2024-01-08T10:00:00",
		"hasCapacity":  true,
		"baseCapacity": 1,
	})
	if scheduleRec.Code != http.StatusCreated {
		t.Fatalf("schedule create status = %d, body = %s", scheduleRec.Code, scheduleRec.Body.String())
	}
	var schedule struct {
		ScheduleID string `json:"scheduleId"`
	}
	if err := json.Unmarshal(scheduleRec.Body.Bytes(), &schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	sessionID := schedule.ScheduleID + "#2024-01-08"

	bookingRec := doRequest(t, handler, http.MethodPost, "/scheduling/bookings", map[string]any{
		"sessionId": sessionID,
		"subjectId": "member-1",
	})
	if bookingRec.Code != http.StatusCreated {
		t.Fatalf("booking create status = %d, body = %s", bookingRec.Code, bookingRec.Body.String())
	}
	var createdBooking struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.Unmarshal(bookingRec.Body.Bytes(), &createdBooking); err != nil {
		t.Fatalf("decode booking: %v", err)
	}

	overrideRec := doRequest(t, handler, http.MethodPatch, "/scheduling/attendance", map[string]any{
		"sessionId": sessionID,
		"bookingId": createdBooking.BookingID,
		"status":    "PRESENT",
	})
	if overrideRec.Code != http.StatusOK {
		t.Fatalf("override status = %d, body = %s", overrideRec.Code, overrideRec.Body.String())
	}
}

func TestMethodNotAllowedOnSessions(t *testing.T) {
	handler := newTestRouter(t)

	rec := doRequest(t, handler, http.MethodPost, "/scheduling/sessions", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/scheduling/programs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
