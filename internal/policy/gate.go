// Package policy provides an optional Rego gate over extracted suggestions.
// When no policy directory is configured every suggestion passes.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/extract"
)

// Gate answers whether a suggestion may become a reminder.
type Gate interface {
	Allow(ctx context.Context, s extract.Suggestion) bool
}

// AllowAll is the gate used when no policy directory is configured.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, extract.Suggestion) bool { return true }

// Engine evaluates data.nudged.reminders.allow against loaded .rego modules.
type Engine struct {
	policyDir string
	logger    zerolog.Logger

	allowQuery rego.PreparedEvalQuery
	modules    map[string]*ast.Module
}

// NewEngine loads and compiles all .rego files under policyDir.
func NewEngine(policyDir string, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policyDir: policyDir,
		logger:    logger.With().Str("component", "policy").Logger(),
		modules:   make(map[string]*ast.Module),
	}

	if err := e.loadPolicies(); err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	if err := e.prepareAllowQuery(); err != nil {
		return nil, fmt.Errorf("prepare allow query: %w", err)
	}

	e.logger.Info().Str("policy_dir", policyDir).Int("modules", len(e.modules)).Msg("Policy engine initialized")
	return e, nil
}

func (e *Engine) loadPolicies() error {
	files, err := filepath.Glob(filepath.Join(e.policyDir, "*.rego"))
	if err != nil {
		return fmt.Errorf("glob policy files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found in %s", e.policyDir)
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read policy file %s: %w", file, err)
		}

		module, err := ast.ParseModule(file, string(content))
		if err != nil {
			return fmt.Errorf("parse policy file %s: %w", file, err)
		}

		e.modules[file] = module
		e.logger.Debug().Str("file", file).Str("package", module.Package.Path.String()).Msg("Loaded policy module")
	}

	return nil
}

func (e *Engine) prepareAllowQuery() error {
	opts := append([]func(*rego.Rego){rego.Query("data.nudged.reminders.allow")}, e.withModules()...)
	r := rego.New(opts...)

	query, err := r.PrepareForEval(context.Background())
	if err != nil {
		return err
	}

	e.allowQuery = query
	return nil
}

func (e *Engine) withModules() []func(*rego.Rego) {
	opts := make([]func(*rego.Rego), 0, len(e.modules))
	for _, module := range e.modules {
		opts = append(opts, rego.Module(module.Package.Path.String(), module.String()))
	}
	return opts
}

// Allow evaluates the allow rule for a suggestion. Evaluation failures and
// undefined results fail open: a broken policy must not silence reminders.
func (e *Engine) Allow(ctx context.Context, s extract.Suggestion) bool {
	input := map[string]interface{}{
		"title":        s.Title,
		"description":  s.Description,
		"app_name":     s.AppName,
		"window_name":  s.WindowName,
		"priority":     string(s.Priority),
		"strategy":     s.Strategy,
		"should_remind": s.ShouldRemind,
	}
	if s.Confidence != nil {
		input["confidence"] = *s.Confidence
	}

	results, err := e.allowQuery.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		e.logger.Warn().Err(err).Str("title", s.Title).Msg("Policy evaluation failed, allowing")
		return true
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return true
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		e.logger.Warn().Str("title", s.Title).Msgf("Policy allow is not a bool: %T", results[0].Expressions[0].Value)
		return true
	}
	if !allowed {
		e.logger.Info().Str("title", s.Title).Msg("Suggestion denied by policy")
	}
	return allowed
}
