package assignment

import (
	"fmt"
	"strings"

	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

// MatchKind selects how a Matcher inspects the flattened answers.
type MatchKind string

const (
	// MatchContains is true when the flattened answer contains Value.
	MatchContains MatchKind = "contains"
	// MatchPresent is true when the answer exists and is not null.
	MatchPresent MatchKind = "present"
	// MatchAny is true when any nested matcher is true.
	MatchAny MatchKind = "any"
)

// Matcher is a small closed predicate over the flattened answer map.
type Matcher struct {
	Kind  MatchKind
	Key   string
	Value string
	Any   []Matcher
}

// Rule proposes TemplateSlug when Match holds.
type Rule struct {
	TemplateSlug string
	Match        Matcher
	Reason       string
}

func Contains(key, value string) Matcher {
	return Matcher{Kind: MatchContains, Key: key, Value: strings.ToLower(value)}
}

func Present(key string) Matcher {
	return Matcher{Kind: MatchPresent, Key: key}
}

func AnyOf(matchers ...Matcher) Matcher {
	return Matcher{Kind: MatchAny, Any: matchers}
}

// Matches evaluates the matcher. An error means the answer had a shape the
// matcher cannot read.
func (m Matcher) Matches(answers map[string]any) (bool, error) {
	switch m.Kind {
	case MatchContains:
		flat, ok, err := normalize.FlattenValue(answers[m.Key])
		if err != nil {
			return false, fmt.Errorf("answer %q: %w", m.Key, err)
		}
		return ok && strings.Contains(flat, m.Value), nil
	case MatchPresent:
		v, ok := answers[m.Key]
		return ok && v != nil, nil
	case MatchAny:
		var firstErr error
		for _, sub := range m.Any {
			matched, err := sub.Matches(answers)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if matched {
				return true, nil
			}
		}
		return false, firstErr
	default:
		return false, fmt.Errorf("unknown matcher kind %q", m.Kind)
	}
}

// DefaultRules is the rule set, in evaluation order. Adding a rule is a code
// change; every rule maps to a distinct template slug.
var DefaultRules = []Rule{
	{
		TemplateSlug: "rugaciune-grup-etnic",
		Match:        AnyOf(Contains("prayer_method", "adopt"), Present("ethnic_group_choice")),
		Reason:       "User wants to adopt an ethnic group for prayer",
	},
	{
		TemplateSlug: "rugaciune-misionari",
		Match:        Contains("prayer_method", "missionary"),
		Reason:       "User wants to pray for missionaries",
	},
	{
		TemplateSlug: "info-misiune-termen-scurt",
		Match:        Contains("mission_interests", "short_term"),
		Reason:       "User interested in short-term missions",
	},
	{
		TemplateSlug: "info-misionar",
		Match:        Contains("desired_role", "missionary"),
		Reason:       "User wants to become a missionary",
	},
	{
		TemplateSlug: "info-tabere-misiune",
		Match:        Contains("mission_interests", "camps"),
		Reason:       "User interested in mission camps",
	},
	{
		TemplateSlug: "info-voluntariat",
		Match:        Contains("mission_interests", "volunteer"),
		Reason:       "User interested in volunteering",
	},
	{
		TemplateSlug: "info-donatii",
		Match:        Contains("support_interests", "donate"),
		Reason:       "User interested in supporting financially",
	},
	{
		TemplateSlug: "info-curs-kairos",
		Match:        Contains("course_interests", "kairos"),
		Reason:       "User interested in Kairos course",
	},
	{
		TemplateSlug: "info-curs-mobilizeaza",
		Match:        Contains("course_interests", "mobilizeaza"),
		Reason:       "User interested in Mobilizeaza course",
	},
	{
		TemplateSlug: "info-crst",
		Match:        Contains("course_interests", "crst"),
		Reason:       "User interested in CRST",
	},
}

var locationTemplates = map[string][]string{
	"diaspora": {"info-diaspora-connect", "info-misiune-termen-scurt-diaspora"},
	"romania":  {"info-cursuri-locale", "info-evenimente-apme"},
}

// LocationTemplates returns the slugs proposed for every submission with the
// given location classification.
func LocationTemplates(locationType string) []string {
	slugs := locationTemplates[locationType]
	out := make([]string, len(slugs))
	copy(out, slugs)
	return out
}
