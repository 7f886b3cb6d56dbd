package extract

import "strings"

// FilterConfig holds the acceptance thresholds. Model output quality varies
// across providers, so the bars are configurable rather than hard-coded.
type FilterConfig struct {
	MinDescriptionLength int     // description must be strictly longer than this
	MinConfidence        float64 // applied only when the model reported confidence
	DefaultShouldRemind  bool    // used when the model omits the field
}

// DefaultFilterConfig returns the standard acceptance thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinDescriptionLength: 20,
		MinConfidence:        0.7,
		DefaultShouldRemind:  true,
	}
}

// accept reports whether a suggestion clears the quality bar. Rejections
// catch the common failure modes of model output: echoed titles, placeholder
// "undefined" markers, descriptions too short to act on, and low-confidence
// guesses.
func (c FilterConfig) accept(s Suggestion) bool {
	desc := strings.TrimSpace(s.Description)
	if len(desc) <= c.MinDescriptionLength {
		return false
	}
	if desc == strings.TrimSpace(s.Title) {
		return false
	}
	if desc == strings.TrimSpace(s.AppName) {
		return false
	}
	if strings.Contains(strings.ToLower(desc), "undefined") {
		return false
	}
	if s.Confidence != nil && *s.Confidence < c.MinConfidence {
		return false
	}
	return true
}
