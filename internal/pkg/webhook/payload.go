package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

// Fillout event types.
const (
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

// Payload is a parsed delivery. Records is empty for events that need no
// processing.
type Payload struct {
	Type    string
	Records []PayloadRecord
}

// PayloadRecord is one submission of a delivery and its verbatim JSON.
type PayloadRecord struct {
	Raw    json.RawMessage
	Record normalize.Record
}

type tablePayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      *struct {
		TableID string        `json:"tableId"`
		Records []tableRecord `json:"records"`
	} `json:"data"`

	// Present when the body is a single form submission.
	SubmissionID string          `json:"submissionId"`
	Questions    json.RawMessage `json:"questions"`
}

type tableRecord struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ParsePayload accepts a Fillout table webhook ({id, type, data: {records}})
// or a single form submission ({submissionId, submissionTime, questions}).
// headerType is used when the body does not name its event type.
func ParsePayload(body []byte, headerType string) (*Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("payload must be a JSON object")
	}

	var probe tablePayload
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	eventType := strings.TrimSpace(probe.Type)
	if eventType == "" {
		eventType = strings.TrimSpace(headerType)
	}

	if probe.SubmissionID != "" || len(probe.Questions) > 0 {
		rec, err := decodeRecord(trimmed, "")
		if err != nil {
			return nil, err
		}
		if eventType == "" {
			eventType = EventRecordCreated
		}
		return &Payload{Type: eventType, Records: []PayloadRecord{rec}}, nil
	}

	out := &Payload{Type: eventType}
	if !isProcessable(eventType) || probe.Data == nil {
		return out, nil
	}
	for i, r := range probe.Data.Records {
		rec, err := decodeRecord(r.Data, r.ID)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func decodeRecord(raw json.RawMessage, fallbackID string) (PayloadRecord, error) {
	var rec normalize.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return PayloadRecord{}, fmt.Errorf("malformed submission: %w", err)
	}
	if rec.SubmissionID == "" {
		rec.SubmissionID = fallbackID
	}
	if rec.SubmissionID == "" {
		return PayloadRecord{}, errors.New("submission id is missing")
	}
	return PayloadRecord{Raw: append(json.RawMessage(nil), raw...), Record: rec}, nil
}

func isProcessable(eventType string) bool {
	return eventType == EventRecordCreated || eventType == EventRecordUpdated
}
