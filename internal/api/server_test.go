package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/capture"
	"github.com/goodtune/nudged/internal/extract"
	"github.com/goodtune/nudged/internal/prompt"
	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
	"github.com/goodtune/nudged/internal/storage/bolt"
	"github.com/goodtune/nudged/internal/tracker"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Generate(context.Context, string) (string, error) {
	return `{"reminders": [], "insights": []}`, nil
}

type testServer struct {
	server   *Server
	manager  *reminder.Manager
	tracker  *tracker.Tracker
	applied  []storage.Settings
	settings storage.SettingsStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	captureSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": []}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(captureSrv.Close)

	store, err := bolt.Open(filepath.Join(t.TempDir(), "nudged.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	manager, err := reminder.NewManager(context.Background(), store.Reminders(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tr, err := tracker.New(
		tracker.Config{
			ContentType:      "ocr",
			SampleLimit:      200,
			PollInterval:     time.Hour,
			AnalysisInterval: time.Hour,
			DedupCacheSize:   16,
		},
		capture.NewClient(captureSrv.URL, 2*time.Second, zerolog.Nop()),
		prompt.NewBuilder(prompt.DefaultConfig()),
		stubAnalyzer{},
		extract.NewParser(extract.DefaultFilterConfig(), zerolog.Nop()),
		nil,
		manager,
		nil,
		nil,
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(tr.Stop)

	ts := &testServer{manager: manager, tracker: tr, settings: store.Settings()}
	ts.server = NewServer(Deps{
		Tracker:   tr,
		Reminders: manager,
		Settings:  store.Settings(),
		OnSettingsChange: func(s storage.Settings) error {
			ts.applied = append(ts.applied, s)
			return nil
		},
		Logger: zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
}

func TestTrackingStartStop(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/tracking/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start = %d: %s", w.Code, w.Body.String())
	}
	var status tracker.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Tracking {
		t.Error("expected tracking after start")
	}

	w = ts.do(t, http.MethodPost, "/api/tracking/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Tracking {
		t.Error("expected idle after stop")
	}
}

func TestReminderLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/reminders", map[string]interface{}{
		"title":       "Finish PR",
		"description": "Finish the review comments on the deploy PR",
		"app":         map[string]string{"app_name": "VS Code"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	var created storage.ReminderItem
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.Status != storage.StatusPending {
		t.Fatalf("unexpected created item: %+v", created)
	}

	w = ts.do(t, http.MethodGet, "/api/reminders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list struct {
		Reminders []storage.ReminderItem `json:"reminders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(list.Reminders))
	}

	w = ts.do(t, http.MethodPost, "/api/reminders/"+created.ID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete = %d", w.Code)
	}
	var completed storage.ReminderItem
	if err := json.Unmarshal(w.Body.Bytes(), &completed); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if completed.Status != storage.StatusCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}

	w = ts.do(t, http.MethodDelete, "/api/reminders/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}

	w = ts.do(t, http.MethodDelete, "/api/reminders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear = %d", w.Code)
	}
}

func TestReminderNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/reminders/missing/complete",
		"/api/reminders/missing/dismiss",
	} {
		if w := ts.do(t, http.MethodPost, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, w.Code)
		}
	}
	if w := ts.do(t, http.MethodDelete, "/api/reminders/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", w.Code)
	}
}

func TestCreateReminderValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/reminders", map[string]string{"title": "no description"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("create without description = %d, want 400", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/api/settings", nil); w.Code != http.StatusNotFound {
		t.Fatalf("settings before put = %d, want 404", w.Code)
	}

	put := map[string]interface{}{
		"provider_type":              "openai-compatible",
		"model":                      "gpt-4o-mini",
		"endpoint_url":               "https://api.example.com/v1",
		"api_key":                    "sk-test",
		"analysis_frequency_minutes": 5,
	}
	w := ts.do(t, http.MethodPut, "/api/settings", put)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d: %s", w.Code, w.Body.String())
	}
	if len(ts.applied) != 1 || ts.applied[0].Model != "gpt-4o-mini" {
		t.Errorf("settings change callback not applied: %+v", ts.applied)
	}

	w = ts.do(t, http.MethodGet, "/api/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings = %d", w.Code)
	}
	var got storage.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if got.ProviderType != "openai-compatible" || got.AnalysisFrequency != 5 {
		t.Errorf("unexpected settings: %+v", got)
	}
}

func TestSettingsValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/settings", map[string]interface{}{
		"provider_type":              "local-model",
		"model":                      "llama3.2",
		"analysis_frequency_minutes": 30, // above the allowed range
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("put out-of-range frequency = %d, want 400", w.Code)
	}
}
