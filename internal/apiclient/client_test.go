package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	seen := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.auth = r.Header.Get("Authorization")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			if err := json.Unmarshal(raw, &seen.body); err != nil {
				t.Errorf("request body is not JSON: %s", raw)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, seen
}

func newTestClient(t *testing.T, baseURL string, token string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Tokens: staticToken(token), Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "  "}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestGetAbnormalReading(t *testing.T) {
	server, seen := newTestServer(t, http.StatusOK, `{"data":{"id":42,"previousReading":100,"currentReading":150,"average":120,"meter":{"id":3,"connection":{"id":7}}}}`)
	c := newTestClient(t, server.URL+"/", "tok-1")

	reading, err := c.GetAbnormalReading(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetAbnormalReading: %v", err)
	}
	if seen.method != http.MethodGet || seen.path != "/get-abnormal-reading/42" {
		t.Fatalf("unexpected request %s %s", seen.method, seen.path)
	}
	if seen.auth != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", seen.auth)
	}
	if reading.ID != 42 || !reading.HasAverage() || *reading.Average != 120 {
		t.Errorf("unexpected reading: %#v", reading)
	}
	if id, ok := reading.ConnectionID(); !ok || id != 7 {
		t.Errorf("expected connection 7, got %d", id)
	}
}

func TestGetAbnormalReading_EmptyData(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"data":null}`)
	c := newTestClient(t, server.URL, "")

	if _, err := c.GetAbnormalReading(context.Background(), 42); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestUpdateMeterReading_SendsNumbersAndNotesVerbatim(t *testing.T) {
	server, seen := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, server.URL, "")

	err := c.UpdateMeterReading(context.Background(), 42, CorrectionRequest{PreviousReading: 100, CurrentReading: 160, Notes: ""})
	if err != nil {
		t.Fatalf("UpdateMeterReading: %v", err)
	}
	if seen.method != http.MethodPatch || seen.path != "/update-meter-reading/42" {
		t.Fatalf("unexpected request %s %s", seen.method, seen.path)
	}
	if seen.auth != "" {
		t.Errorf("expected no Authorization header without a token, got %q", seen.auth)
	}
	want := map[string]any{"previousReading": 100.0, "currentReading": 160.0, "notes": ""}
	if diff := cmp.Diff(want, seen.body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestBillOnAverage(t *testing.T) {
	server, seen := newTestServer(t, http.StatusCreated, `{"ok":true}`)
	c := newTestClient(t, server.URL, "")

	if err := c.BillOnAverage(context.Background(), AverageBillRequest{ConnectionID: 7, Consumption: 120, MeterReadingID: 42}); err != nil {
		t.Fatalf("BillOnAverage: %v", err)
	}
	if seen.method != http.MethodPost || seen.path != "/bill-on-average" {
		t.Fatalf("unexpected request %s %s", seen.method, seen.path)
	}
	want := map[string]any{"connectionId": 7.0, "consumption": 120.0, "meterReadingID": 42.0}
	if diff := cmp.Diff(want, seen.body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestListTaskTypesAndUsers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get-tasks-types", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Repair"},{"id":2,"name":"Meter Survey"}]`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":5,"name":"Otieno"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	c := newTestClient(t, server.URL, "")

	types, err := c.ListTaskTypes(context.Background())
	if err != nil {
		t.Fatalf("ListTaskTypes: %v", err)
	}
	if len(types) != 2 || types[1].Name != "Meter Survey" {
		t.Errorf("unexpected types: %#v", types)
	}

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].ID != 5 {
		t.Errorf("unexpected users: %#v", users)
	}
}

func TestCreateTaskForConnection(t *testing.T) {
	server, seen := newTestServer(t, http.StatusCreated, `{"id":900,"title":"Meter Inspection Required","TypeId":2,"AssignedTo":5,"priority":"MEDIUM"}`)
	c := newTestClient(t, server.URL, "")

	connID := int64(7)
	due := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	task, err := c.CreateTaskForConnection(context.Background(), CreateTaskRequest{
		TypeID:              2,
		Title:               "Meter Inspection Required",
		Description:         "inspect",
		Priority:            "MEDIUM",
		DueDate:             due,
		ScheduledAt:         due.Add(-7 * 24 * time.Hour),
		AssignedTo:          5,
		RelatedConnectionID: &connID,
	})
	if err != nil {
		t.Fatalf("CreateTaskForConnection: %v", err)
	}
	if task.ID != 900 {
		t.Errorf("expected task 900, got %d", task.ID)
	}
	if seen.path != "/create-task-for-connection" {
		t.Fatalf("unexpected path %s", seen.path)
	}
	if seen.body["TypeId"] != 2.0 || seen.body["AssignedTo"] != 5.0 || seen.body["RelatedConnectionId"] != 7.0 {
		t.Errorf("unexpected body: %#v", seen.body)
	}
	if seen.body["dueDate"] != "2025-06-08T00:00:00Z" {
		t.Errorf("unexpected dueDate: %v", seen.body["dueDate"])
	}
	if _, ok := seen.body["RelatedZoneId"]; ok {
		t.Error("unset related ids must be omitted")
	}
}

func TestAPIError_ServerMessage(t *testing.T) {
	server, _ := newTestServer(t, http.StatusConflict, `{"message":"Reading already resolved"}`)
	c := newTestClient(t, server.URL, "")

	err := c.UpdateMeterReading(context.Background(), 42, CorrectionRequest{})
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Message != "Reading already resolved" {
		t.Errorf("unexpected api error: %#v", apiErr)
	}
	if got := MessageOr(err, "Failed to update reading"); got != "Reading already resolved" {
		t.Errorf("MessageOr = %q", got)
	}
}

func TestAPIError_ErrorFieldAndFallback(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadRequest, `{"error":"connection is dormant"}`)
	c := newTestClient(t, server.URL, "")
	err := c.BillOnAverage(context.Background(), AverageBillRequest{})
	if got := MessageOr(err, "fallback"); got != "connection is dormant" {
		t.Errorf("MessageOr = %q", got)
	}

	plain, _ := newTestServer(t, http.StatusInternalServerError, `<html>oops</html>`)
	c = newTestClient(t, plain.URL, "")
	err = c.BillOnAverage(context.Background(), AverageBillRequest{})
	if AsAPIError(err) == nil {
		t.Fatalf("expected APIError, got %v", err)
	}
	if got := MessageOr(err, "Failed to bill on average"); got != "Failed to bill on average" {
		t.Errorf("MessageOr = %q", got)
	}
}

func TestTransportErrorUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url, "")
	err := c.BillOnAverage(context.Background(), AverageBillRequest{})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if AsAPIError(err) != nil {
		t.Error("transport failures must not look like API errors")
	}
	if got := MessageOr(err, "Failed to bill on average"); got != "Failed to bill on average" {
		t.Errorf("MessageOr = %q", got)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(&APIError{StatusCode: http.StatusUnauthorized}) {
		t.Error("401 should be unauthorized")
	}
	if IsUnauthorized(errors.New("boom")) {
		t.Error("plain errors are not unauthorized")
	}
}

func TestMetricsObserved(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `[]`)
	c := newTestClient(t, server.URL, "")

	before := testutil.ToFloat64(apiRequestsTotal.WithLabelValues("list_task_types", "200"))
	if _, err := c.ListTaskTypes(context.Background()); err != nil {
		t.Fatalf("ListTaskTypes: %v", err)
	}
	after := testutil.ToFloat64(apiRequestsTotal.WithLabelValues("list_task_types", "200"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, before=%v after=%v", before, after)
	}
}
