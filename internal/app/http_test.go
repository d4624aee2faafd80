package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"swingvote/api/internal/store"
)

func newSeededServer(t *testing.T) (*HTTPServer, *fakeStore) {
	t.Helper()
	fs := seededStore(t)
	svc := newTestService(fs)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return NewHTTPServer(svc, "*", nil), fs
}

func doRequest(t *testing.T, server *HTTPServer, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestBillRoutes(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/bills", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list bills: expected 200, got %d", rr.Code)
	}
	var bills []store.Bill
	if err := json.Unmarshal(rr.Body.Bytes(), &bills); err != nil {
		t.Fatalf("decode bills: %v", err)
	}
	if len(bills) != 2 {
		t.Errorf("expected 2 bills, got %d", len(bills))
	}

	rr = doRequest(t, server, http.MethodGet, "/api/bills/hr1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get bill: expected 200, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["title"]; got != "For the People Act" {
		t.Errorf("title = %v", got)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/bills/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing bill: expected 404, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["message"]; got != "Bill not found" {
		t.Errorf("message = %v", got)
	}
}

func TestAnalyzeRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/bills/hr1/analyze", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeMap(t, rr)
	whip, ok := payload["whipCount"].(map[string]any)
	if !ok {
		t.Fatalf("missing whipCount: %v", payload)
	}
	if whip["yes"] != float64(2) || whip["no"] != float64(2) || whip["swing"] != float64(1) {
		t.Errorf("unexpected whip count: %v", whip)
	}
	senators, _ := payload["senators"].([]any)
	if len(senators) != 5 {
		t.Errorf("expected 5 senators, got %d", len(senators))
	}

	rr = doRequest(t, server, http.MethodGet, "/api/bills/nope/analyze", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestSyncRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/sync", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["message"]; got != "Sync complete" {
		t.Errorf("message = %v", got)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/sync", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/sync: expected 405, got %d", rr.Code)
	}
}

func TestTopicsRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/topics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var topics []store.Topic
	if err := json.Unmarshal(rr.Body.Bytes(), &topics); err != nil {
		t.Fatalf("decode topics: %v", err)
	}
	if len(topics) != 12 {
		t.Errorf("expected 12 topics, got %d", len(topics))
	}
}

func TestPreferencesRoutes(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/preferences", "", map[string]string{"x-session-id": "abc"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Errorf("expected null for unknown session, got %s", rr.Body.String())
	}

	rr = doRequest(t, server, http.MethodPost, "/api/preferences",
		`{"selectedTopics":["Healthcare","Education"],"customInterests":"teachers","onboardingComplete":true}`,
		map[string]string{"x-session-id": "abc"})
	if rr.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	saved := decodeMap(t, rr)
	if saved["sessionId"] != "abc" || saved["onboardingComplete"] != true {
		t.Errorf("unexpected saved preferences: %v", saved)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/preferences", "", map[string]string{"x-session-id": "abc"})
	got := decodeMap(t, rr)
	topics, _ := got["selectedTopics"].([]any)
	if len(topics) != 2 || got["customInterests"] != "teachers" {
		t.Errorf("unexpected preferences: %v", got)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/preferences", "", nil)
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Errorf("default session should not see abc's preferences, got %s", rr.Body.String())
	}
}

func TestPreferencesDefaultSession(t *testing.T) {
	server, fs := newSeededServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/preferences", `{"selectedTopics":[]}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := fs.preferences["default"]; !ok {
		t.Error("expected preferences saved under the default session")
	}
}

func TestPreferencesValidationRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", "", "selectedTopics is required"},
		{"missing topics", `{"onboardingComplete":true}`, "selectedTopics is required"},
		{"null topics", `{"selectedTopics":null}`, "selectedTopics is required"},
		{"blank entry", `{"selectedTopics":[""]}`, "selectedTopics[0] must be a non-empty string"},
		{"wrong type", `{"selectedTopics":"Healthcare"}`, "selectedTopics has an invalid type"},
		{"wrong element type", `{"selectedTopics":[1]}`, "selectedTopics has an invalid type"},
		{"malformed", `{"selectedTopics":`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodPost, "/api/preferences", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if got := decodeMap(t, rr)["message"]; got != tt.message {
				t.Errorf("message = %v, want %q", got, tt.message)
			}
		})
	}
}

func TestDraftEmailRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/email/draft", `{"senatorId":"M001183","billId":"hr1","voteIntention":"YES"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeMap(t, rr)
	if payload["subject"] != "Urging Your YES Vote on For the People Act" {
		t.Errorf("subject = %v", payload["subject"])
	}
	if payload["senatorName"] != "Joe Manchin" || payload["billTitle"] != "For the People Act" {
		t.Errorf("unexpected names: %v", payload)
	}
	if body, _ := payload["body"].(string); !strings.Contains(body, "real benefits") {
		t.Errorf("YES draft should use the benefits clause: %q", body)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/email/draft", `{"senatorId":"nobody","billId":"hr1","voteIntention":"YES"}`, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing senator: expected 404, got %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/email/draft", `{"senatorId":"M001183","billId":"hr1","voteIntention":"ABSTAIN"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad intention: expected 400, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["message"]; got != "voteIntention must be YES or NO" {
		t.Errorf("message = %v", got)
	}
}

func TestDraftEmailRouteServerError(t *testing.T) {
	fs := seededStore(t)
	fs.getMemberFn = func(context.Context, string) (store.Member, error) {
		return store.Member{}, errors.New("connection reset")
	}
	server := NewHTTPServer(newTestService(fs), "*", nil)

	rr := doRequest(t, server, http.MethodPost, "/api/email/draft", `{"senatorId":"M001183","billId":"hr1","voteIntention":"NO"}`, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["message"]; got != "Failed to generate email draft" {
		t.Errorf("message = %v", got)
	}
}

func TestSearchRoute(t *testing.T) {
	server, _ := newSeededServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/bills/search?q=people", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeMap(t, rr)
	if payload["query"] != "people" {
		t.Errorf("query = %v", payload["query"])
	}
	if _, ok := payload["results"].([]any); !ok {
		t.Errorf("results should be an array: %v", payload["results"])
	}

	rr = doRequest(t, server, http.MethodGet, "/api/bills/search?q=x&limit=ten", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", rr.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	server, _ := newSeededServer(t)

	for _, path := range []string{"/", "/api", "/api/unknown", "/api/bills/hr1/votes", "/api/email", "/api/topics/1"} {
		rr := doRequest(t, server, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}

	rr := doRequest(t, server, http.MethodDelete, "/api/bills/hr1", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE bill: expected 405, got %d", rr.Code)
	}
}
