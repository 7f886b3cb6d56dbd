package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	strategyJSON      = "embedded-json"
	strategySections  = "labeled-sections"
	strategyHeuristic = "heuristic"

	// chars of context searched around each "App Name:" match in the
	// labeled-section strategy
	sectionWindow = 300
)

// extractEmbeddedJSON locates the first balanced-looking {...} span and
// attempts to deserialize it as the reminder envelope. Markdown code fences
// around the object are stripped first.
func extractEmbeddedJSON(raw string, now time.Time, cfg FilterConfig) ([]Suggestion, []string, bool) {
	text := stripFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, nil, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
		// No parseable structure; not an error, the next strategy runs.
		return nil, nil, false
	}
	if env.Reminders == nil && env.Insights == nil {
		return nil, nil, false
	}

	suggestions := make([]Suggestion, 0, len(env.Reminders))
	for _, r := range env.Reminders {
		suggestions = append(suggestions, Suggestion{
			Title:        strings.TrimSpace(r.Title),
			Description:  strings.TrimSpace(r.Description),
			AppName:      strings.TrimSpace(r.appName()),
			WindowName:   strings.TrimSpace(r.windowName()),
			ShouldRemind: r.shouldRemind(cfg.DefaultShouldRemind),
			Confidence:   r.Confidence,
			Priority:     r.priority(),
			Strategy:     strategyJSON,
			ExtractedAt:  now,
		})
	}

	insights := env.Insights
	if insights == nil {
		insights = []string{}
	}

	return suggestions, insights, true
}

// stripFences removes Markdown code-fence wrappers (```json ... ```) that
// models frequently add around JSON output.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.ReplaceAll(trimmed, "```json", "")
	trimmed = strings.ReplaceAll(trimmed, "```JSON", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	return strings.TrimSpace(trimmed)
}

var (
	remindersHeadingRe = regexp.MustCompile(`(?i)reminder\s+suggestions?\s*:?`)
	insightsHeadingRe  = regexp.MustCompile(`(?i)general\s+insights?\s*:?`)

	appNameRe      = regexp.MustCompile(`(?i)app\s*name\s*:\s*(.+)`)
	titleRe        = regexp.MustCompile(`(?i)title\s*:\s*(.+)`)
	descriptionRe  = regexp.MustCompile(`(?i)description\s*:\s*(.+)`)
	windowNameRe   = regexp.MustCompile(`(?i)window\s*name\s*:\s*(.+)`)
	shouldRemindRe = regexp.MustCompile(`(?i)should\s*remind\s*:\s*(\w+)`)
)

// extractLabeledSections handles semi-structured output: a "Reminder
// Suggestions" heading followed by labeled fields. Each "App Name:" match
// anchors a fixed-size window searched for the remaining fields.
func extractLabeledSections(raw string, now time.Time, cfg FilterConfig) ([]Suggestion, []string, bool) {
	headingLoc := remindersHeadingRe.FindStringIndex(raw)
	if headingLoc == nil {
		return nil, nil, false
	}

	span := raw[headingLoc[1]:]
	if insightsLoc := insightsHeadingRe.FindStringIndex(span); insightsLoc != nil {
		span = span[:insightsLoc[0]]
	}

	anchors := appNameRe.FindAllStringSubmatchIndex(span, -1)

	var suggestions []Suggestion
	for i, loc := range anchors {
		appName := firstLine(span[loc[2]:loc[3]])
		if appName == "" {
			continue
		}

		// Look-behind and look-ahead, clamped at the neighbouring anchors so
		// one block's fields never attach to another block's app.
		lo := loc[0] - sectionWindow
		if lo < 0 {
			lo = 0
		}
		if i > 0 && anchors[i-1][1] > lo {
			lo = anchors[i-1][1]
		}
		hi := loc[1] + sectionWindow
		if hi > len(span) {
			hi = len(span)
		}
		if i+1 < len(anchors) && anchors[i+1][0] < hi {
			hi = anchors[i+1][0]
		}
		window := span[lo:hi]
		anchor := loc[0] - lo

		title := matchFieldNearest(titleRe, window, anchor)
		description := matchFieldNearest(descriptionRe, window, anchor)
		if title == "" || description == "" {
			continue
		}

		shouldRemind := true
		if value := matchFieldNearest(shouldRemindRe, window, anchor); value != "" {
			shouldRemind = !strings.EqualFold(value, "false") && !strings.EqualFold(value, "no")
		}

		suggestions = append(suggestions, Suggestion{
			Title:        title,
			Description:  description,
			AppName:      appName,
			WindowName:   matchFieldNearest(windowNameRe, window, anchor),
			ShouldRemind: shouldRemind,
			Priority:     PriorityMedium,
			Strategy:     strategySections,
			ExtractedAt:  now,
		})
	}

	if len(suggestions) == 0 {
		return nil, nil, false
	}
	return suggestions, []string{}, true
}

// matchFieldNearest returns the field value whose match sits closest to the
// anchoring "App Name:" occurrence. Windows of adjacent suggestion blocks
// overlap, so taking the first match in the window would bleed fields from a
// neighbouring block into this one.
func matchFieldNearest(re *regexp.Regexp, window string, anchor int) string {
	best := ""
	bestDist := -1
	for _, loc := range re.FindAllStringSubmatchIndex(window, -1) {
		dist := loc[0] - anchor
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = firstLine(window[loc[2]:loc[3]])
		}
	}
	return best
}

func firstLine(value string) string {
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = value[:idx]
	}
	return strings.Trim(strings.TrimSpace(value), "*_`")
}

// The app name is taken as a run of capitalized words so prose following the
// name ("...opened GitHub and left") does not leak into the match.
var briefUseRe = regexp.MustCompile(
	`\b(?i:briefly|quickly)\s+(?i:used|opened|checked|visited)\s+` +
		`([A-Z][\w.+#-]*(?: [A-Z][\w.+#-]*)*)` +
		`(?:\s+(?i:in|on)\s+(?i:the\s+)?([\w ._#-]{1,60}?)\s+(?i:window|tab))?`)

// extractHeuristic is the last resort: scan prose for "briefly/quickly
// used/opened/checked/visited <app>" phrasing and synthesize a generic
// suggestion per match.
func extractHeuristic(raw string, now time.Time, cfg FilterConfig) ([]Suggestion, []string, bool) {
	matches := briefUseRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, nil, false
	}

	seen := make(map[string]bool)
	var suggestions []Suggestion
	for _, m := range matches {
		appName := strings.TrimSpace(m[1])
		if appName == "" || seen[strings.ToLower(appName)] {
			continue
		}
		seen[strings.ToLower(appName)] = true

		windowName := ""
		if len(m) > 2 {
			windowName = strings.TrimSpace(m[2])
		}

		suggestions = append(suggestions, Suggestion{
			Title:        fmt.Sprintf("Return to %s", appName),
			Description:  fmt.Sprintf("You briefly interacted with %s and may have left a task unfinished there.", appName),
			AppName:      appName,
			WindowName:   windowName,
			ShouldRemind: true,
			Priority:     PriorityMedium,
			Strategy:     strategyHeuristic,
			ExtractedAt:  now,
		})
	}

	if len(suggestions) == 0 {
		return nil, nil, false
	}
	return suggestions, []string{}, true
}
