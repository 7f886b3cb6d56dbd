// Package extract recovers structured reminder suggestions from free-form
// model output. Output format is not stable across providers, model versions,
// or prompt revisions, so extraction runs an ordered list of independent
// strategies and degrades gracefully instead of failing outright.
package extract

import (
	"time"

	"github.com/rs/zerolog"
)

// strategy attempts one extraction approach. ok reports whether the strategy
// found parseable structure at all; only when it did not does the next
// strategy get a turn. A found-but-empty envelope is a terminal result.
type strategy func(raw string, now time.Time, cfg FilterConfig) (suggestions []Suggestion, insights []string, ok bool)

// Parser turns raw model text into reminder suggestions and insights.
type Parser struct {
	filter     FilterConfig
	strategies []strategy
	logger     zerolog.Logger
}

// NewParser creates a parser with the given acceptance thresholds.
func NewParser(filter FilterConfig, logger zerolog.Logger) *Parser {
	return &Parser{
		filter: filter,
		strategies: []strategy{
			extractEmbeddedJSON,
			extractLabeledSections,
			extractHeuristic,
		},
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// Parse never fails; on total extraction failure it returns an empty result.
// Strategies run in priority order and the first one that yields parseable
// structure wins.
func (p *Parser) Parse(raw string) Result {
	now := time.Now().UTC()

	for _, strat := range p.strategies {
		suggestions, insights, ok := strat(raw, now, p.filter)
		if !ok {
			continue
		}

		accepted := make([]Suggestion, 0, len(suggestions))
		for _, s := range suggestions {
			if p.filter.accept(s) {
				accepted = append(accepted, s)
			} else {
				p.logger.Debug().
					Str("title", s.Title).
					Str("strategy", s.Strategy).
					Msg("Suggestion rejected by acceptance filter")
			}
		}

		if insights == nil {
			insights = []string{}
		}
		return Result{Suggestions: accepted, Insights: insights}
	}

	return Result{Suggestions: []Suggestion{}, Insights: []string{}}
}
