package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// messageRepoMem is the in-memory MessageRepository used in tests and when
// the server runs with STORE=memory.
type messageRepoMem struct {
	mu   sync.RWMutex
	logs map[uuid.UUID][]*Message
}

func NewMessageRepoMem() MessageRepository {
	return &messageRepoMem{logs: make(map[uuid.UUID][]*Message)}
}

func (r *messageRepoMem) Append(_ context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	stored := *m
	r.logs[m.PatientID] = append(r.logs[m.PatientID], &stored)
	return nil
}

func (r *messageRepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[patientID]
	// Return copies, never aliases of stored values.
	out := make([]*Message, len(log))
	for i, m := range log {
		c := *m
		out[i] = &c
	}
	return out, nil
}

func (r *messageRepoMem) DeleteByPatient(_ context.Context, patientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, patientID)
	return nil
}
