package chat

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository stores the per-patient conversation log. The log is
// append-only; there is no update or delete of individual messages.
type MessageRepository interface {
	Append(ctx context.Context, m *Message) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Message, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}
