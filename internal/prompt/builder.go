// Package prompt turns a batch of activity samples into the text sent to the
// analysis provider. The builder and the extract package are coupled by the
// response schema the instruction block requests.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goodtune/nudged/internal/capture"
)

// SchemaVersion identifies the response contract requested from the model.
// Bump it together with the matching extraction strategy.
const SchemaVersion = "v1"

// Config bounds the prompt payload.
type Config struct {
	SampleCap     int           // most recent N samples kept
	TextLimit     int           // chars of free text kept per sample
	BriefDuration time.Duration // visits shorter than this are flagged
}

// DefaultConfig returns the standard prompt bounds.
func DefaultConfig() Config {
	return Config{
		SampleCap:     40,
		TextLimit:     40,
		BriefDuration: 20 * time.Second,
	}
}

// Builder is a pure transform from activity samples to a provider-agnostic
// prompt string.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder with the given bounds.
func NewBuilder(cfg Config) *Builder {
	if cfg.SampleCap <= 0 {
		cfg.SampleCap = DefaultConfig().SampleCap
	}
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = DefaultConfig().TextLimit
	}
	if cfg.BriefDuration <= 0 {
		cfg.BriefDuration = DefaultConfig().BriefDuration
	}
	return &Builder{cfg: cfg}
}

// visit aggregates consecutive samples sharing an (app, window) key.
type visit struct {
	appName    string
	windowName string
	firstSeen  time.Time
	lastSeen   time.Time
	visitCount int
	text       string
}

func (v visit) duration() time.Duration {
	return v.lastSeen.Sub(v.firstSeen)
}

// Build renders the instruction block plus the aggregated activity data.
// Brief interactions get called out explicitly; touch-and-leave visits are
// the strongest signal of an interrupted task.
func (b *Builder) Build(samples []capture.Sample) string {
	if len(samples) > b.cfg.SampleCap {
		samples = samples[len(samples)-b.cfg.SampleCap:]
	}

	visits := b.aggregate(samples)

	var sb strings.Builder
	sb.WriteString("You are an attentive assistant reviewing a user's recent desktop activity.\n")
	sb.WriteString("Identify applications the user touched briefly and likely left a task unfinished in.\n\n")
	sb.WriteString("Respond with ONLY a JSON object of this exact shape:\n")
	sb.WriteString(`{"reminders":[{"title":"...","description":"...","appName":"...","windowName":"...","shouldRemind":true,"confidence":0.0,"priority":"low|medium|high"}],"insights":["..."]}` + "\n\n")
	sb.WriteString("Rules: descriptions must be concrete and reference what the user was doing.\n")
	sb.WriteString("Set shouldRemind=false for routine activity. Omit reminders you are not confident about.\n\n")
	sb.WriteString(fmt.Sprintf("Activity (%d samples, %d app/window visits):\n", len(samples), len(visits)))

	for _, v := range visits {
		line := fmt.Sprintf("- app=%q window=%q visits=%d duration=%s",
			v.appName, v.windowName, v.visitCount, v.duration().Round(time.Second))
		if v.duration() < b.cfg.BriefDuration {
			line += " BRIEF"
		}
		if v.text != "" {
			line += fmt.Sprintf(" text=%q", v.text)
		}
		sb.WriteString(line + "\n")
	}

	return sb.String()
}

// aggregate groups samples by (app, window), tracking first/last seen and a
// visit count. Samples arrive chronologically ordered; a revisit after
// leaving still folds into the same key so duration spans the whole session
// window for that surface.
func (b *Builder) aggregate(samples []capture.Sample) []visit {
	type key struct{ app, window string }

	index := make(map[key]*visit)
	order := make([]key, 0)
	var lastKey *key

	for _, sample := range samples {
		k := key{app: sample.AppName, window: sample.WindowName}
		v, seen := index[k]
		if !seen {
			v = &visit{
				appName:    sample.AppName,
				windowName: sample.WindowName,
				firstSeen:  sample.Timestamp,
			}
			index[k] = v
			order = append(order, k)
		}
		v.lastSeen = sample.Timestamp
		if lastKey == nil || *lastKey != k {
			v.visitCount++
		}
		if v.text == "" && sample.Text != "" {
			v.text = truncate(sample.Text, b.cfg.TextLimit)
		}
		current := k
		lastKey = &current
	}

	visits := make([]visit, 0, len(index))
	for _, k := range order {
		visits = append(visits, *index[k])
	}
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].firstSeen.Before(visits[j].firstSeen)
	})
	return visits
}

func truncate(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
