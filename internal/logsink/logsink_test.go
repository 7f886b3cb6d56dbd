package logsink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSendDeliversEvent(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode event: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := New(srv.URL, 2*time.Second, zerolog.Nop())
	sink.Send(context.Background(), Event{
		Timestamp:  1724990400000,
		App:        "Figma",
		WindowName: "Landing Page",
	})

	select {
	case ev := <-received:
		if ev.App != "Figma" || ev.WindowName != "Landing Page" {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Timestamp != 1724990400000 {
			t.Errorf("unexpected timestamp %d", ev.Timestamp)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestSendSwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := New(srv.URL, 2*time.Second, zerolog.Nop())
	// Must not panic or block.
	sink.Send(context.Background(), Event{App: "Terminal"})
}

func TestNilSink(t *testing.T) {
	sink := New("", 2*time.Second, zerolog.Nop())
	if sink != nil {
		t.Fatal("expected nil sink for empty endpoint")
	}
	sink.Send(context.Background(), Event{App: "Terminal"})
}
