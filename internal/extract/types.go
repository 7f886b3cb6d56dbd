package extract

import (
	"encoding/json"
	"strings"
	"time"
)

// Priority represents reminder urgency as reported by the model.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Suggestion is a candidate reminder recovered from model output. It has not
// yet been accepted into the persisted list.
type Suggestion struct {
	Title        string
	Description  string
	AppName      string
	WindowName   string
	ShouldRemind bool
	Confidence   *float64 // nil when the model reported none
	Priority     Priority
	Strategy     string // which extraction strategy produced it
	ExtractedAt  time.Time
}

// Result is the output of a parse pass. Zero suggestions is a valid outcome,
// not an error.
type Result struct {
	Suggestions []Suggestion
	Insights    []string
}

// envelope is the JSON shape the prompt asks the model to produce. Field
// aliases absorb schema drift across provider and model versions.
type envelope struct {
	Reminders []rawSuggestion `json:"reminders"`
	Insights  []string        `json:"insights"`
}

type rawSuggestion struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	AppName      string          `json:"appName"`
	AppNameSnake string          `json:"app_name"`
	WindowName   string          `json:"windowName"`
	WindowSnake  string          `json:"window_name"`
	ShouldRemind *bool           `json:"shouldRemind"`
	RemindSnake  *bool           `json:"should_remind"`
	Confidence   *float64        `json:"confidence"`
	Priority     json.RawMessage `json:"priority"`
}

func (r rawSuggestion) appName() string {
	if r.AppName != "" {
		return r.AppName
	}
	return r.AppNameSnake
}

func (r rawSuggestion) windowName() string {
	if r.WindowName != "" {
		return r.WindowName
	}
	return r.WindowSnake
}

func (r rawSuggestion) shouldRemind(fallback bool) bool {
	if r.ShouldRemind != nil {
		return *r.ShouldRemind
	}
	if r.RemindSnake != nil {
		return *r.RemindSnake
	}
	return fallback
}

// priority maps the raw priority value onto the enum, defaulting to medium
// for absent or unrecognized values.
func (r rawSuggestion) priority() Priority {
	var value string
	if len(r.Priority) > 0 {
		_ = json.Unmarshal(r.Priority, &value)
	}
	switch Priority(strings.ToLower(value)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}
