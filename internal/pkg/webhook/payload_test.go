package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_TableWebhook(t *testing.T) {
	body := []byte(`{
		"id": "evt-1",
		"type": "record.created",
		"timestamp": "2024-03-01T10:00:00Z",
		"data": {
			"tableId": "tbl",
			"records": [
				{"id": "rec-1", "data": {"submissionId": "sub-1", "submissionTime": "2024-03-01T09:59:00Z", "questions": [{"id": "q1", "name": "Email", "type": "EmailInput", "value": "a@b.ro"}]}},
				{"id": "rec-2", "data": {"questions": []}}
			]
		}
	}`)

	p, err := ParsePayload(body, "")
	require.NoError(t, err)

	assert.Equal(t, EventRecordCreated, p.Type)
	require.Len(t, p.Records, 2)
	assert.Equal(t, "sub-1", p.Records[0].Record.SubmissionID)
	require.Len(t, p.Records[0].Record.Questions, 1)
	assert.Equal(t, "EmailInput", p.Records[0].Record.Questions[0].Type)
	assert.Equal(t, "rec-2", p.Records[1].Record.SubmissionID)
	assert.JSONEq(t, `{"questions": []}`, string(p.Records[1].Raw))
}

func TestParsePayload_DirectSubmission(t *testing.T) {
	p, err := ParsePayload([]byte(`{"submissionId":"sub-9","submissionTime":"2024-01-01T00:00:00Z","questions":[]}`), "")
	require.NoError(t, err)

	assert.Equal(t, EventRecordCreated, p.Type)
	require.Len(t, p.Records, 1)
	assert.Equal(t, "sub-9", p.Records[0].Record.SubmissionID)
}

func TestParsePayload_NonProcessableTypes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		headerType string
	}{
		{name: "deleted", body: `{"type":"record.deleted","data":{"records":[{"id":"r","data":{"submissionId":"s"}}]}}`},
		{name: "unknown type", body: `{"type":"form.published"}`},
		{name: "empty object", body: `{}`},
		{name: "header type only", body: `{"data":{"records":[]}}`, headerType: "record.deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.body), tt.headerType)
			require.NoError(t, err)
			assert.Empty(t, p.Records)
		})
	}
}

func TestParsePayload_HeaderTypeFallback(t *testing.T) {
	p, err := ParsePayload([]byte(`{"data":{"records":[{"id":"r1","data":{"questions":[]}}]}}`), "record.updated")
	require.NoError(t, err)

	assert.Equal(t, EventRecordUpdated, p.Type)
	require.Len(t, p.Records, 1)
}

func TestParsePayload_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ``},
		{name: "not json", body: `not json`},
		{name: "truncated", body: `{"type":`},
		{name: "array", body: `[1,2]`},
		{name: "record data not an object", body: `{"type":"record.created","data":{"records":[{"id":"r","data":"text"}]}}`},
		{name: "record without any id", body: `{"type":"record.created","data":{"records":[{"data":{"questions":[]}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tt.body), "")
			assert.Error(t, err)
		})
	}
}
