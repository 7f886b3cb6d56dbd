package extract

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestParser() *Parser {
	return NewParser(DefaultFilterConfig(), zerolog.Nop())
}

func TestParseEmbeddedJSON(t *testing.T) {
	raw := `{"reminders":[{"title":"Finish PR","description":"You opened the pull request for 5 seconds and left without commenting.","appName":"GitHub","shouldRemind":true,"confidence":0.9}],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	s := result.Suggestions[0]
	if s.Title != "Finish PR" {
		t.Errorf("Title = %q, want %q", s.Title, "Finish PR")
	}
	if s.AppName != "GitHub" {
		t.Errorf("AppName = %q, want GitHub", s.AppName)
	}
	if !s.ShouldRemind {
		t.Error("ShouldRemind = false, want true")
	}
	if s.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium default", s.Priority)
	}
	if s.Strategy != strategyJSON {
		t.Errorf("Strategy = %q, want %q", s.Strategy, strategyJSON)
	}
	if s.ExtractedAt.IsZero() {
		t.Error("ExtractedAt not set")
	}
}

func TestParseFencedJSONMatchesUnfenced(t *testing.T) {
	plain := `{"reminders":[{"title":"Finish PR","description":"You opened the pull request for 5 seconds and left without commenting.","appName":"GitHub","shouldRemind":true,"confidence":0.9}],"insights":["Afternoon context switching was heavy."]}`
	fenced := "Here is the analysis:\n```json\n" + plain + "\n```\n"

	parser := newTestParser()
	plainResult := parser.Parse(plain)
	fencedResult := parser.Parse(fenced)

	if len(plainResult.Suggestions) != 1 || len(fencedResult.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion each, got %d and %d",
			len(plainResult.Suggestions), len(fencedResult.Suggestions))
	}
	if plainResult.Suggestions[0].Title != fencedResult.Suggestions[0].Title {
		t.Errorf("fenced title %q differs from unfenced %q",
			fencedResult.Suggestions[0].Title, plainResult.Suggestions[0].Title)
	}
	if len(fencedResult.Insights) != 1 {
		t.Errorf("fenced insights = %v, want 1 entry", fencedResult.Insights)
	}
}

func TestParseJSONSchemaAliases(t *testing.T) {
	raw := `{"reminders":[{"title":"Reply to thread","description":"A long Slack thread is waiting on your answer about the deploy.","app_name":"Slack","window_name":"#deploys","should_remind":true}],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	s := result.Suggestions[0]
	if s.AppName != "Slack" || s.WindowName != "#deploys" {
		t.Errorf("snake_case aliases not mapped: %+v", s)
	}
}

func TestParseJSONRoundTripFiltersInvalid(t *testing.T) {
	// Only the first entry clears the acceptance bar; the rest each trip a
	// distinct rejection rule.
	raw := `{"reminders":[
		{"title":"Valid","description":"This description is comfortably longer than twenty characters.","appName":"App","confidence":0.9},
		{"title":"Too short","description":"short one","appName":"App"},
		{"title":"Echo title echo title here","description":"Echo title echo title here","appName":"App"},
		{"title":"Echo app","description":"SomeApplicationName","appName":"SomeApplicationName"},
		{"title":"Placeholder","description":"The window was undefined and nothing else was captured.","appName":"App"},
		{"title":"Low confidence","description":"A perfectly reasonable and long description of a task.","appName":"App","confidence":0.5}
	],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 {
		titles := make([]string, 0, len(result.Suggestions))
		for _, s := range result.Suggestions {
			titles = append(titles, s.Title)
		}
		t.Fatalf("expected only the valid suggestion, got %v", titles)
	}
	if result.Suggestions[0].Title != "Valid" {
		t.Errorf("surviving suggestion = %q, want Valid", result.Suggestions[0].Title)
	}
}

func TestParseDescriptionBoundary(t *testing.T) {
	exactly20 := strings.Repeat("x", 20)
	exactly21 := strings.Repeat("x", 21)

	raw := `{"reminders":[
		{"title":"At the bar","description":"` + exactly20 + `","appName":"App"},
		{"title":"Over the bar","description":"` + exactly21 + `","appName":"App"}
	],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 || result.Suggestions[0].Title != "Over the bar" {
		t.Fatalf("description length bar must be strict: got %+v", result.Suggestions)
	}
}

func TestParseLabeledSections(t *testing.T) {
	raw := `Based on the activity I can see a few things worth following up on.

Reminder Suggestions:

App Name: Figma
Title: Finish the onboarding mockup
Description: You had the onboarding frame open for under ten seconds before switching away.
Window Name: Onboarding v2
Should Remind: true

App Name: Terminal
Title: Rerun the failing migration
Description: The migration output showed an error right before you switched to the browser.
Should Remind: false

General Insights:
You switched apps 14 times in 10 minutes.`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(result.Suggestions), result.Suggestions)
	}

	first := result.Suggestions[0]
	if first.AppName != "Figma" || first.WindowName != "Onboarding v2" {
		t.Errorf("first suggestion fields wrong: %+v", first)
	}
	if !first.ShouldRemind {
		t.Error("first suggestion should remind")
	}

	second := result.Suggestions[1]
	if second.AppName != "Terminal" || second.ShouldRemind {
		t.Errorf("second suggestion fields wrong: %+v", second)
	}
	if second.Strategy != strategySections {
		t.Errorf("Strategy = %q, want %q", second.Strategy, strategySections)
	}
}

func TestParseLabeledSectionsRequireTitleAndDescription(t *testing.T) {
	raw := `Reminder Suggestions:

App Name: Figma
Window Name: Onboarding v2

App Name: Notes
Title: Flesh out agenda
Description: The meeting agenda note was open only for a moment this afternoon.`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion (incomplete one dropped), got %d", len(result.Suggestions))
	}
	if result.Suggestions[0].AppName != "Notes" {
		t.Errorf("AppName = %q, want Notes", result.Suggestions[0].AppName)
	}
}

func TestParseHeuristicFreeText(t *testing.T) {
	raw := `Looking at the activity, you briefly opened Spotify and moved on, and later you quickly checked Gmail in the Inbox tab before returning to your editor.`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(result.Suggestions), result.Suggestions)
	}
	if result.Suggestions[0].AppName != "Spotify" {
		t.Errorf("first AppName = %q, want Spotify", result.Suggestions[0].AppName)
	}
	if result.Suggestions[1].AppName != "Gmail" || result.Suggestions[1].WindowName != "Inbox" {
		t.Errorf("second suggestion = %+v, want Gmail/Inbox", result.Suggestions[1])
	}
	for _, s := range result.Suggestions {
		if !s.ShouldRemind {
			t.Errorf("heuristic suggestion %q must always remind", s.AppName)
		}
		if s.Strategy != strategyHeuristic {
			t.Errorf("Strategy = %q, want %q", s.Strategy, strategyHeuristic)
		}
	}
}

func TestParseTotalFailureReturnsEmpty(t *testing.T) {
	for _, raw := range []string{
		"",
		"The model has nothing structured to say about your activity today.",
		"{not valid json at all",
	} {
		result := newTestParser().Parse(raw)
		if result.Suggestions == nil || result.Insights == nil {
			t.Fatalf("Parse(%q) returned nil slices", raw)
		}
		if len(result.Suggestions) != 0 {
			t.Fatalf("Parse(%q) = %+v, want empty", raw, result.Suggestions)
		}
	}
}

func TestParseEmptyEnvelopeDoesNotFallThrough(t *testing.T) {
	// An explicit empty envelope is a terminal answer; the heuristic must not
	// synthesize suggestions from prose around it.
	raw := `I briefly checked Everything and found no unfinished work.
{"reminders":[],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %+v", result.Suggestions)
	}
}

func TestFilterConfidenceOnlyWhenPresent(t *testing.T) {
	raw := `{"reminders":[{"title":"No confidence","description":"The model did not report confidence for this suggestion.","appName":"App"}],"insights":[]}`

	result := newTestParser().Parse(raw)

	if len(result.Suggestions) != 1 {
		t.Fatalf("suggestion without confidence must not be gated, got %d", len(result.Suggestions))
	}
}
