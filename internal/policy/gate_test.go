package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/extract"
)

const testPolicy = `package nudged.reminders

default allow := false

allow if {
	input.priority != "low"
}
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reminders.rego"), []byte(testPolicy), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	engine, err := NewEngine(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineAllow(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		priority extract.Priority
		want     bool
	}{
		{"medium priority allowed", extract.PriorityMedium, true},
		{"high priority allowed", extract.PriorityHigh, true},
		{"low priority denied", extract.PriorityLow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := extract.Suggestion{
				Title:       "Finish PR",
				Description: "Finish the review comments on the deploy PR",
				Priority:    tt.priority,
			}
			if got := engine.Allow(ctx, s); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineEmptyDir(t *testing.T) {
	if _, err := NewEngine(t.TempDir(), zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty policy dir")
	}
}

func TestAllowAll(t *testing.T) {
	gate := AllowAll{}
	if !gate.Allow(context.Background(), extract.Suggestion{Priority: extract.PriorityLow}) {
		t.Error("AllowAll denied a suggestion")
	}
}
