package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrTurnInFlight is returned when a send arrives while a previous turn for
// the same conversation is still outstanding. The turn is ignored, not
// queued.
var ErrTurnInFlight = errors.New("a conversation turn is already in flight")

// NameResolver supplies the patient's display name for the prompt. The
// record service implements it.
type NameResolver interface {
	DisplayName(ctx context.Context, patientID uuid.UUID) (string, error)
}

// Conversation manages per-patient chat logs and runs conversation turns
// through the generator.
type Conversation struct {
	repo   MessageRepository
	gen    *Generator
	names  NameResolver
	logger zerolog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]bool
}

func NewConversation(repo MessageRepository, gen *Generator, names NameResolver, logger zerolog.Logger) *Conversation {
	return &Conversation{
		repo:     repo,
		gen:      gen,
		names:    names,
		logger:   logger,
		inflight: make(map[uuid.UUID]bool),
	}
}

// History returns the patient's message log. A new conversation is seeded
// with the assistant greeting.
func (s *Conversation) History(ctx context.Context, patientID uuid.UUID) ([]*Message, error) {
	msgs, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	greeting := &Message{
		ID:        uuid.New(),
		PatientID: patientID,
		Sender:    SenderAI,
		Text:      Greeting,
		Timestamp: time.Now(),
	}
	if err := s.repo.Append(ctx, greeting); err != nil {
		return nil, err
	}
	return []*Message{greeting}, nil
}

// Send runs one conversation turn: append the user message, generate a
// reply, append it, and return it. Only one turn per patient may be in
// flight; concurrent sends fail with ErrTurnInFlight.
//
// A backend failure never surfaces to the caller as an error: the static
// apology message is inserted into the conversation instead.
func (s *Conversation) Send(ctx context.Context, patientID uuid.UUID, text string) (*Message, error) {
	if !s.acquire(patientID) {
		return nil, ErrTurnInFlight
	}
	defer s.release(patientID)

	// The request history is the log as the user saw it before typing,
	// excluding the message being sent.
	history, err := s.History(ctx, patientID)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ID:        uuid.New(),
		PatientID: patientID,
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	if err := s.repo.Append(ctx, userMsg); err != nil {
		return nil, err
	}

	patientName := ""
	if s.names != nil {
		if name, err := s.names.DisplayName(ctx, patientID); err == nil {
			patientName = name
		}
	}

	log := make([]Message, len(history))
	for i, m := range history {
		log[i] = *m
	}
	req := BuildRequest(log, text, patientName)

	replyText := ""
	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("patient_id", patientID.String()).Msg("generation failed")
		replyText = ApologyMessage
	} else {
		replyText = resp.Response
	}

	aiMsg := &Message{
		ID:        uuid.New(),
		PatientID: patientID,
		Sender:    SenderAI,
		Text:      replyText,
		Timestamp: time.Now(),
	}
	if err := s.repo.Append(ctx, aiMsg); err != nil {
		return nil, err
	}
	return aiMsg, nil
}

func (s *Conversation) acquire(patientID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[patientID] {
		return false
	}
	s.inflight[patientID] = true
	return true
}

func (s *Conversation) release(patientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, patientID)
}
