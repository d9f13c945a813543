package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/FormFox/app/models"
)

func q(id, name, typ string, value any) Question {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return Question{ID: id, Name: name, Type: typ, Value: raw}
}

func romaniaRecord() Record {
	return Record{
		SubmissionID:   "sub-1",
		SubmissionTime: "2024-03-01T10:15:00.000Z",
		Questions: []Question{
			q("q1", "Cum te numești?", "ShortAnswer", "  Ana Maria Popescu "),
			q("q2", "Adresa de email", "EmailInput", "ana@example.com"),
			q("q3", "Număr de telefon", "PhoneNumber", "+40 700 000 000"),
			q("q4", "Unde locuiești?", "MultipleChoice", "În România"),
			q("q5", "În ce oraș din România locuiești?", "ShortAnswer", "Cluj-Napoca"),
			q("q6", "La ce biserică mergi?", "ShortAnswer", "Biserica Harul"),
			q("q7", "Mission Interests", "Checkboxes", []string{"Short_Term", "Volunteer"}),
		},
	}
}

func TestNormalizeRomaniaSubmission(t *testing.T) {
	out := Normalize(romaniaRecord())

	assert.Equal(t, "sub-1", out.SubmissionID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC), out.SubmissionTime)
	assert.Equal(t, "Ana", out.FirstName)
	assert.Equal(t, "Maria Popescu", out.LastName)
	assert.Equal(t, "ana@example.com", out.Email)
	assert.Equal(t, "+40 700 000 000", out.Phone)
	assert.Equal(t, models.LocationRomania, out.LocationType)
	assert.Equal(t, "Cluj-Napoca", out.City)
	assert.Equal(t, "Romania", out.Country)
	assert.Equal(t, "Biserica Harul", out.Church)

	require.Len(t, out.AnswerRows, 7)
	assert.Equal(t, "q7", out.AnswerRows[6].QuestionID)
	require.NotNil(t, out.AnswerRows[6].DisplayValue)
	assert.Equal(t, "Short_Term,Volunteer", *out.AnswerRows[6].DisplayValue)
	assert.JSONEq(t, `["Short_Term","Volunteer"]`, string(out.AnswerRows[6].RawValue))

	flat, ok, err := FlattenValue(out.Answers["mission_interests"])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "short_term,volunteer", flat)
}

func TestNormalizeDiasporaCityAndCountry(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		wantCity    string
		wantCountry string
	}{
		{name: "city and country", answer: "Londra, Marea Britanie", wantCity: "Londra", wantCountry: "Marea Britanie"},
		{name: "split on first comma only", answer: "Madrid,Spania, Europa", wantCity: "Madrid", wantCountry: "Spania, Europa"},
		{name: "no comma", answer: "Chicago", wantCity: "Chicago", wantCountry: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(Record{
				SubmissionID: "sub-2",
				Questions: []Question{
					q("loc", "Unde locuiești?", "MultipleChoice", "În afara României"),
					q("city", "În ce oraș și țară locuiești?", "ShortAnswer", tt.answer),
				},
			})
			assert.Equal(t, models.LocationDiaspora, out.LocationType)
			assert.Equal(t, tt.wantCity, out.City)
			assert.Equal(t, tt.wantCountry, out.Country)
		})
	}
}

func TestDetectLocation(t *testing.T) {
	tests := []struct {
		name      string
		questions []Question
		want      string
	}{
		{name: "no location question", questions: []Question{q("a", "Other", "", "x")}, want: models.LocationUnknown},
		{name: "empty answer", questions: []Question{q("a", "Unde locuiești?", "", nil)}, want: models.LocationUnknown},
		{name: "romania without diacritics", questions: []Question{q("a", "Unde locuiești?", "", "Romania")}, want: models.LocationRomania},
		{name: "outside marker", questions: []Question{q("a", "Unde locuiești?", "", "Locuiesc afara")}, want: models.LocationDiaspora},
		{name: "unrecognised answer", questions: []Question{q("a", "Unde locuiești?", "", "Pe Marte")}, want: models.LocationUnknown},
		{
			name: "first matching question wins",
			questions: []Question{
				q("a", "Unde locuiești acum?", "", "În afara României"),
				q("b", "Unde locuiești?", "", "România"),
			},
			want: models.LocationDiaspora,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLocation(tt.questions))
		})
	}
}

func TestNormalizeUnknownLocationHasNoCity(t *testing.T) {
	out := Normalize(Record{
		SubmissionID: "sub-3",
		Questions: []Question{
			q("city", "În ce oraș din România locuiești?", "", "Iași"),
		},
	})
	assert.Equal(t, models.LocationUnknown, out.LocationType)
	assert.Empty(t, out.City)
	assert.Empty(t, out.Country)
}

func TestNormalizeFirstMatchWins(t *testing.T) {
	out := Normalize(Record{
		SubmissionID: "sub-4",
		Questions: []Question{
			q("e1", "Email", "", "first@example.com"),
			q("e2", "Email alternativ", "EmailInput", "second@example.com"),
			q("p1", "Contact", "PhoneNumber", "0711"),
			q("p2", "Număr de telefon", "", "0722"),
		},
	})
	assert.Equal(t, "first@example.com", out.Email)
	assert.Equal(t, "0711", out.Phone)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{in: "", wantFirst: "", wantLast: ""},
		{in: "Ion", wantFirst: "Ion", wantLast: ""},
		{in: "Ion  Vasile\tPopa", wantFirst: "Ion", wantLast: "Vasile Popa"},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.wantFirst, first, tt.in)
		assert.Equal(t, tt.wantLast, last, tt.in)
	}
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "prayer_method", CanonicalKey("Prayer Method"))
	assert.Equal(t, "mission_interests", CanonicalKey("  Mission \t Interests "))
	assert.Equal(t, "", CanonicalKey("   "))
}

func TestFlattenValue(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantOK  bool
		wantErr bool
	}{
		{name: "nil", in: nil, wantOK: false},
		{name: "string", in: "Missionary", want: "missionary", wantOK: true},
		{name: "array", in: []any{"Short_Term", "Camps"}, want: "short_term,camps", wantOK: true},
		{name: "string slice", in: []string{"A", "B"}, want: "a,b", wantOK: true},
		{name: "number", in: float64(3), want: "3", wantOK: true},
		{name: "bool", in: true, want: "true", wantOK: true},
		{name: "object", in: map[string]any{"a": 1}, wantErr: true},
		{name: "array with object", in: []any{"x", map[string]any{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := FlattenValue(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	assert.Equal(t, Normalize(romaniaRecord()), Normalize(romaniaRecord()))
}

func TestFromStoredRebuildsAnswerKeys(t *testing.T) {
	display := "missionary"
	sub := &models.Submission{
		ExternalID:   "sub-5",
		Email:        "a@b.c",
		LocationType: models.LocationDiaspora,
		Answers: []models.SubmissionAnswer{
			{QuestionID: "q1", QuestionName: "Prayer Method", DisplayValue: &display, RawValue: datatypes.JSON(`"Missionary"`)},
			{QuestionID: "q2", QuestionName: "Mission Interests", RawValue: datatypes.JSON(`["camps"]`)},
		},
	}

	out := FromStored(sub)

	assert.Equal(t, "sub-5", out.SubmissionID)
	assert.Equal(t, models.LocationDiaspora, out.LocationType)
	assert.Equal(t, "Missionary", out.Answers["prayer_method"])
	assert.Equal(t, []any{"camps"}, out.Answers["mission_interests"])
	assert.Len(t, out.AnswerRows, 2)
}
