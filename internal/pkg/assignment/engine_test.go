package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

func slugsOf(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.TemplateSlug)
	}
	return out
}

func TestEngine_Evaluate(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name    string
		answers map[string]any
		want    []string
	}{
		{
			name:    "no answers",
			answers: map[string]any{},
			want:    []string{},
		},
		{
			name:    "unrelated answers",
			answers: map[string]any{"favourite_colour": "blue"},
			want:    []string{},
		},
		{
			name:    "adopt ethnic group by method",
			answers: map[string]any{"prayer_method": "Adopt an ethnic group"},
			want:    []string{"rugaciune-grup-etnic"},
		},
		{
			name:    "ethnic group choice alone",
			answers: map[string]any{"ethnic_group_choice": "Uyghur"},
			want:    []string{"rugaciune-grup-etnic"},
		},
		{
			name:    "null ethnic group choice is absent",
			answers: map[string]any{"ethnic_group_choice": nil},
			want:    []string{},
		},
		{
			name: "multiple matches keep declaration order",
			answers: map[string]any{
				"course_interests":  []any{"CRST", "Kairos"},
				"mission_interests": []any{"Volunteer", "Short_Term", "Camps"},
				"prayer_method":     "Pray for a Missionary",
				"desired_role":      "missionary",
				"support_interests": "donate",
			},
			want: []string{
				"rugaciune-misionari",
				"info-misiune-termen-scurt",
				"info-misionar",
				"info-tabere-misiune",
				"info-voluntariat",
				"info-donatii",
				"info-curs-kairos",
				"info-crst",
			},
		},
		{
			name:    "mobilizeaza course",
			answers: map[string]any{"course_interests": "Mobilizeaza"},
			want:    []string{"info-curs-mobilizeaza"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(normalize.NormalizedSubmission{SubmissionID: "s1", Answers: tt.answers})
			assert.Equal(t, tt.want, slugsOf(got))
		})
	}
}

func TestEngine_EvaluateReasons(t *testing.T) {
	got := NewEngine(nil).Evaluate(normalize.NormalizedSubmission{
		Answers: map[string]any{"support_interests": []any{"Donate"}},
	})

	assert.Equal(t, []Candidate{{TemplateSlug: "info-donatii", Reason: "User interested in supporting financially"}}, got)
}

func TestEngine_EvaluateSkipsBrokenRule(t *testing.T) {
	got := NewEngine(nil).Evaluate(normalize.NormalizedSubmission{
		Answers: map[string]any{
			"prayer_method":    map[string]any{"nested": "adopt"},
			"course_interests": "kairos",
		},
	})

	assert.Equal(t, []string{"info-curs-kairos"}, slugsOf(got))
}

func TestEngine_AnyMatcherSurvivesBrokenBranch(t *testing.T) {
	got := NewEngine(nil).Evaluate(normalize.NormalizedSubmission{
		Answers: map[string]any{
			"prayer_method":       map[string]any{"nested": true},
			"ethnic_group_choice": "Kurds",
		},
	})

	assert.Equal(t, []string{"rugaciune-grup-etnic"}, slugsOf(got))
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewEngine(nil)
	sub := normalize.NormalizedSubmission{Answers: map[string]any{
		"mission_interests": []any{"camps", "volunteer"},
		"course_interests":  "crst",
	}}

	first := engine.Evaluate(sub)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Evaluate(sub))
	}
}

func TestLocationTemplates(t *testing.T) {
	assert.Equal(t, []string{"info-diaspora-connect", "info-misiune-termen-scurt-diaspora"}, LocationTemplates("diaspora"))
	assert.Equal(t, []string{"info-cursuri-locale", "info-evenimente-apme"}, LocationTemplates("romania"))
	assert.Empty(t, LocationTemplates("unknown"))
	assert.Empty(t, LocationTemplates(""))
}

func TestLocationTemplates_ReturnsCopy(t *testing.T) {
	slugs := LocationTemplates("romania")
	slugs[0] = "changed"

	assert.Equal(t, "info-cursuri-locale", LocationTemplates("romania")[0])
}

func TestEngine_Candidates(t *testing.T) {
	got := NewEngine(nil).Candidates(normalize.NormalizedSubmission{
		LocationType: "diaspora",
		Answers:      map[string]any{"course_interests": "kairos"},
	})

	assert.Equal(t, []Candidate{
		{TemplateSlug: "info-curs-kairos", Reason: "User interested in Kairos course"},
		{TemplateSlug: "info-diaspora-connect", Reason: "Location-specific: diaspora"},
		{TemplateSlug: "info-misiune-termen-scurt-diaspora", Reason: "Location-specific: diaspora"},
	}, got)
}

func TestEngine_CustomRules(t *testing.T) {
	engine := NewEngine([]Rule{{TemplateSlug: "custom", Match: Present("anything"), Reason: "custom"}})

	got := engine.Evaluate(normalize.NormalizedSubmission{Answers: map[string]any{"anything": false}})
	assert.Equal(t, []string{"custom"}, slugsOf(got))
}

func TestDefaultRules_DistinctSlugs(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range DefaultRules {
		assert.False(t, seen[r.TemplateSlug], "duplicate slug %s", r.TemplateSlug)
		seen[r.TemplateSlug] = true
	}
	assert.Len(t, DefaultRules, 10)
}
