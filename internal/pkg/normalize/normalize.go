// Package normalize turns a free-form list of form answers into the
// canonical submission shape used by storage and the assignment engine.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
)

// Question is one answered question as delivered by the form provider.
type Question struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Record is a single form submission as delivered by the form provider.
type Record struct {
	SubmissionID   string     `json:"submissionId"`
	SubmissionTime string     `json:"submissionTime"`
	Questions      []Question `json:"questions"`
}

// Answer is the storage form of a question's answer.
type Answer struct {
	QuestionID   string
	QuestionName string
	QuestionType string
	DisplayValue *string
	RawValue     json.RawMessage
}

// NormalizedSubmission is the canonical submission. Answers is keyed by
// CanonicalKey of the question name and holds the decoded raw values.
type NormalizedSubmission struct {
	SubmissionID   string
	SubmissionTime time.Time
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	LocationType   string
	City           string
	Country        string
	Church         string
	AnswerRows     []Answer
	Answers        map[string]any
}

// Markers match the wording of the intake form (Romanian).
const (
	markerLocationQuestion = "locuiești"
	markerRomaniaCity      = "oraș din România"
	markerDiasporaCity     = "oraș și țară"
	markerName             = "numești"
	markerPhone            = "telefon"
	markerChurch           = "biserică"

	typeEmail = "EmailInput"
	typePhone = "PhoneNumber"

	countryRomania = "Romania"
)

var (
	romaniaTokens  = []string{"românia", "romania"}
	diasporaTokens = []string{"în afara româniei", "afara"}
	whitespace     = regexp.MustCompile(`\s+`)
)

// Normalize builds the canonical submission from a delivered record. It
// performs no I/O and is deterministic for a given record.
func Normalize(rec Record) NormalizedSubmission {
	out := NormalizedSubmission{
		SubmissionID:   strings.TrimSpace(rec.SubmissionID),
		SubmissionTime: parseTime(rec.SubmissionTime),
		AnswerRows:     make([]Answer, 0, len(rec.Questions)),
		Answers:        make(map[string]any, len(rec.Questions)),
	}

	out.LocationType = DetectLocation(rec.Questions)
	out.City, out.Country = extractCityAndCountry(out.LocationType, rec.Questions)

	if q := findQuestion(rec.Questions, func(q Question) bool {
		return strings.Contains(q.Name, markerName) || strings.Contains(strings.ToLower(q.Name), "name")
	}); q != nil {
		out.FirstName, out.LastName = SplitName(DisplayValue(q.Value))
	}
	if q := findQuestion(rec.Questions, func(q Question) bool {
		return strings.Contains(strings.ToLower(q.Name), "email") || q.Type == typeEmail
	}); q != nil {
		out.Email = strings.TrimSpace(DisplayValue(q.Value))
	}
	if q := findQuestion(rec.Questions, func(q Question) bool {
		return strings.Contains(q.Name, markerPhone) || q.Type == typePhone
	}); q != nil {
		out.Phone = strings.TrimSpace(DisplayValue(q.Value))
	}
	if q := findQuestion(rec.Questions, func(q Question) bool {
		return strings.Contains(q.Name, markerChurch)
	}); q != nil {
		out.Church = strings.TrimSpace(DisplayValue(q.Value))
	}

	for _, q := range rec.Questions {
		row := Answer{
			QuestionID:   q.ID,
			QuestionName: q.Name,
			QuestionType: q.Type,
			RawValue:     rawOrNull(q.Value),
		}
		if display := DisplayValue(q.Value); display != "" {
			row.DisplayValue = &display
		}
		out.AnswerRows = append(out.AnswerRows, row)
		addAnswer(out.Answers, q.Name, q.Value)
	}

	return out
}

// FromStored rebuilds the canonical submission from a stored row and its
// answers, without access to the original delivery.
func FromStored(sub *models.Submission) NormalizedSubmission {
	out := NormalizedSubmission{
		SubmissionID:   sub.ExternalID,
		SubmissionTime: sub.SubmissionTime,
		Email:          sub.Email,
		FirstName:      sub.FirstName,
		LastName:       sub.LastName,
		Phone:          sub.Phone,
		LocationType:   sub.LocationType,
		City:           sub.City,
		Country:        sub.Country,
		Church:         sub.Church,
		AnswerRows:     make([]Answer, 0, len(sub.Answers)),
		Answers:        make(map[string]any, len(sub.Answers)),
	}
	if out.LocationType == "" {
		out.LocationType = models.LocationUnknown
	}

	for _, a := range sub.Answers {
		raw := json.RawMessage(a.RawValue)
		out.AnswerRows = append(out.AnswerRows, Answer{
			QuestionID:   a.QuestionID,
			QuestionName: a.QuestionName,
			QuestionType: a.QuestionType,
			DisplayValue: a.DisplayValue,
			RawValue:     rawOrNull(raw),
		})
		name := a.QuestionName
		if name == "" {
			name = a.QuestionID
		}
		addAnswer(out.Answers, name, raw)
	}
	return out
}

// DetectLocation classifies the submitter from the "where do you live" answer.
func DetectLocation(questions []Question) string {
	q := findQuestion(questions, func(q Question) bool {
		return strings.Contains(q.Name, markerLocationQuestion)
	})
	if q == nil {
		return models.LocationUnknown
	}

	value := strings.ToLower(DisplayValue(q.Value))
	if value == "" {
		return models.LocationUnknown
	}
	if containsAny(value, romaniaTokens) {
		return models.LocationRomania
	}
	if containsAny(value, diasporaTokens) {
		return models.LocationDiaspora
	}
	return models.LocationUnknown
}

// SplitName splits a full name on whitespace: the first token is the first
// name, the remaining tokens form the last name.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// CanonicalKey derives the answer key used by assignment rules from a
// question's display name.
func CanonicalKey(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// FlattenValue renders an answer value for rule matching: arrays are joined
// with commas, everything is lower-cased. ok is false for absent values.
func FlattenValue(v any) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return strings.ToLower(val), true, nil
	case bool:
		return strconv.FormatBool(val), true, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true, nil
	case json.Number:
		return val.String(), true, nil
	case int:
		return strconv.Itoa(val), true, nil
	case []string:
		return strings.ToLower(strings.Join(val, ",")), true, nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok, err := FlattenValue(item)
			if err != nil {
				return "", false, err
			}
			if ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), true, nil
	default:
		return "", false, fmt.Errorf("unsupported answer value of type %T", v)
	}
}

// DisplayValue is the human-readable form of a raw answer. Empty answers
// produce an empty string.
func DisplayValue(raw json.RawMessage) string {
	v, err := decode(raw)
	if err != nil {
		return string(raw)
	}
	return display(v)
}

func display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, display(item))
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func addAnswer(answers map[string]any, name string, raw json.RawMessage) {
	key := CanonicalKey(name)
	if key == "" {
		return
	}
	v, err := decode(raw)
	if err != nil {
		v = string(raw)
	}
	answers[key] = v
}

func decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage("null")
	}
	return raw
}

func extractCityAndCountry(location string, questions []Question) (string, string) {
	switch location {
	case models.LocationRomania:
		city := ""
		if q := findQuestion(questions, func(q Question) bool {
			return strings.Contains(q.Name, markerRomaniaCity)
		}); q != nil {
			city = strings.TrimSpace(DisplayValue(q.Value))
		}
		return city, countryRomania
	case models.LocationDiaspora:
		q := findQuestion(questions, func(q Question) bool {
			return strings.Contains(q.Name, markerDiasporaCity)
		})
		if q == nil {
			return "", ""
		}
		value := DisplayValue(q.Value)
		city, country, found := strings.Cut(value, ",")
		if !found {
			return strings.TrimSpace(value), ""
		}
		return strings.TrimSpace(city), strings.TrimSpace(country)
	}
	return "", ""
}

func findQuestion(questions []Question, match func(Question) bool) *Question {
	for i := range questions {
		if match(questions[i]) {
			return &questions[i]
		}
	}
	return nil
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
