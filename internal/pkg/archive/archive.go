// Package archive keeps a copy of raw webhook deliveries in S3-compatible
// object storage.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Delivery is the raw material of one inbound webhook.
type Delivery struct {
	EventID    string
	EventType  string
	Body       []byte
	ReceivedAt time.Time
}

// Archiver stores raw deliveries.
type Archiver interface {
	Archive(ctx context.Context, d Delivery) error
}

// ObjectKey builds the storage key: <prefix>/YYYY/MM/DD/<event id>.json
func ObjectKey(prefix string, d Delivery) string {
	ts := d.ReceivedAt.UTC()
	key := fmt.Sprintf("%04d/%02d/%02d/%s.json", ts.Year(), int(ts.Month()), ts.Day(), sanitize(d.EventID))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// Noop discards deliveries. Used when archiving is disabled.
type Noop struct{}

func (Noop) Archive(context.Context, Delivery) error { return nil }
