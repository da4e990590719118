package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

const eventsSource = "events"

// Timestamp layouts accepted in the events file. Layouts without a zone are
// read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var errUserIDType = errors.New("user_id must be a number or string")

// userID accepts a JSON number or string and keeps its decimal string form.
type userID string

func (u *userID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = userID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errUserIDType
	}
	if i, err := n.Int64(); err == nil {
		*u = userID(strconv.FormatInt(i, 10))
		return nil
	}
	*u = userID(n.String())
	return nil
}

type rawEvent struct {
	EventID   string          `json:"event_id" validate:"required"`
	UserID    userID          `json:"user_id" validate:"required"`
	MentorID  string          `json:"mentor_id" validate:"required"`
	EventType string          `json:"event_type" validate:"required"`
	Timestamp string          `json:"timestamp" validate:"required"`
	Payload   json.RawMessage `json:"payload"`
}

// EventBatch is the validated content of an events file.
type EventBatch struct {
	// Events holds the first occurrence of every event with a known type,
	// in file order.
	Events []reconcile.Event
	// Total counts every element of the file.
	Total int
	// Duplicates lists repeated event IDs, once each, in order of first repeat.
	Duplicates []string
	// Unknown counts excluded events per unrecognised event_type.
	Unknown map[string]int
}

// Warnings describes the non-fatal problems of the batch.
func (b EventBatch) Warnings() []string {
	var out []string
	if len(b.Duplicates) > 0 {
		out = append(out, fmt.Sprintf("%d duplicate event_id value(s) ignored: %s",
			len(b.Duplicates), strings.Join(b.Duplicates, ", ")))
	}
	types := make([]string, 0, len(b.Unknown))
	for t := range b.Unknown {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		out = append(out, fmt.Sprintf("%d event(s) with unknown event_type %q excluded", b.Unknown[t], t))
	}
	return out
}

// LoadEvents reads and parses an events file.
func (l *Loader) LoadEvents(path string) (EventBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EventBatch{}, fmt.Errorf("read events file: %w", err)
	}
	return l.ParseEvents(data)
}

// ParseEvents decodes a JSON array of events.
func (l *Loader) ParseEvents(data []byte) (EventBatch, error) {
	if !utf8.Valid(data) {
		return EventBatch{}, perrors.Integrity(eventsSource, "", "", "input is not valid UTF-8")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return EventBatch{}, perrors.Integrity(eventsSource, "", "", "input is not a JSON array of events")
	}
	if len(elems) == 0 {
		return EventBatch{}, perrors.Integrity(eventsSource, "", "", "no events")
	}

	batch := EventBatch{Total: len(elems), Unknown: map[string]int{}}
	seen := make(map[string]bool, len(elems))
	repeated := map[string]bool{}

	for i, elem := range elems {
		ev, known, err := l.parseEvent(i, elem)
		if err != nil {
			return EventBatch{}, err
		}
		if seen[ev.ID] {
			if !repeated[ev.ID] {
				repeated[ev.ID] = true
				batch.Duplicates = append(batch.Duplicates, ev.ID)
			}
			continue
		}
		seen[ev.ID] = true
		if !known {
			batch.Unknown[string(ev.Type)]++
			continue
		}
		batch.Events = append(batch.Events, ev)
	}

	for _, w := range batch.Warnings() {
		l.warn(eventsSource, w)
	}
	return batch, nil
}

func (l *Loader) parseEvent(i int, elem json.RawMessage) (reconcile.Event, bool, error) {
	record := "#" + strconv.Itoa(i)

	var raw rawEvent
	if err := json.Unmarshal(elem, &raw); err != nil {
		var field string
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, errUserIDType):
			field = "user_id"
		case errors.As(err, &typeErr):
			field = typeErr.Field
		}
		return reconcile.Event{}, false, perrors.Integrity(eventsSource, record, field, "malformed: "+err.Error())
	}

	raw.EventID = strings.TrimSpace(raw.EventID)
	raw.MentorID = strings.TrimSpace(raw.MentorID)
	raw.EventType = strings.TrimSpace(raw.EventType)
	raw.Timestamp = strings.TrimSpace(raw.Timestamp)
	if raw.EventID != "" {
		record += " " + raw.EventID
	}

	if err := l.validate.Struct(&raw); err != nil {
		return reconcile.Event{}, false, integrityFromValidation(eventsSource, record, err)
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return reconcile.Event{}, false, perrors.Integrity(eventsSource, record, "timestamp", fmt.Sprintf("malformed value %q", raw.Timestamp))
	}

	typ, known := reconcile.ParseEventType(raw.EventType)
	ev := reconcile.Event{
		ID:        raw.EventID,
		UserID:    string(raw.UserID),
		MentorID:  raw.MentorID,
		Type:      typ,
		Timestamp: ts,
	}
	if len(raw.Payload) > 0 && !bytes.Equal(raw.Payload, []byte("null")) {
		ev.Payload = raw.Payload
	}
	return ev, known, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
