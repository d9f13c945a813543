// Package assignment decides which templates a submission should receive
// and persists those decisions idempotently.
package assignment

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

// Candidate is a proposed template for a submission.
type Candidate struct {
	TemplateSlug string `json:"template_slug"`
	Reason       string `json:"reason"`
}

// Engine evaluates a fixed, ordered rule set. It holds no state besides the
// rules and is safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine over rules; nil selects DefaultRules.
func NewEngine(rules []Rule) *Engine {
	if rules == nil {
		rules = DefaultRules
	}
	return &Engine{rules: rules}
}

// Evaluate returns the matching rules' candidates in declaration order. A
// rule that cannot be evaluated is logged and skipped.
func (e *Engine) Evaluate(sub normalize.NormalizedSubmission) []Candidate {
	results := make([]Candidate, 0)
	for _, rule := range e.rules {
		matched, err := rule.Match.Matches(sub.Answers)
		if err != nil {
			log.Warnf("[Assignment] Error evaluating rule %s for submission %s: %v", rule.TemplateSlug, sub.SubmissionID, err)
			continue
		}
		if matched {
			results = append(results, Candidate{TemplateSlug: rule.TemplateSlug, Reason: rule.Reason})
		}
	}
	return results
}

// Candidates is the full proposal for materialization: rule matches followed
// by the location-specific templates.
func (e *Engine) Candidates(sub normalize.NormalizedSubmission) []Candidate {
	out := e.Evaluate(sub)
	for _, slug := range LocationTemplates(sub.LocationType) {
		out = append(out, Candidate{
			TemplateSlug: slug,
			Reason:       fmt.Sprintf("Location-specific: %s", sub.LocationType),
		})
	}
	return out
}
