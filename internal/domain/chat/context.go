package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BuildRequest converts the visible message log plus the new user utterance
// into the request shape expected by the generation pipeline. History
// timestamps are serialized to RFC 3339. The log itself is never mutated;
// appending the user and AI messages is the caller's job.
func BuildRequest(log []Message, currentMessage, patientName string) Request {
	history := make([]HistoryEntry, 0, len(log))
	for _, m := range log {
		history = append(history, HistoryEntry{
			ID:        m.ID.String(),
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return Request{
		History:        history,
		CurrentMessage: currentMessage,
		PatientName:    patientName,
	}
}

// ParseHistory converts serialized history entries back into messages,
// preserving sender, text, and timestamp order.
func ParseHistory(entries []HistoryEntry) ([]Message, error) {
	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp %q: %w", e.Timestamp, err)
		}
		id, err := parseMessageID(e.ID)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{
			ID:        id,
			Sender:    e.Sender,
			Text:      e.Text,
			Timestamp: ts,
		})
	}
	return msgs, nil
}

func parseMessageID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse history message id %q: %w", s, err)
	}
	return id, nil
}
