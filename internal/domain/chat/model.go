package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message maps to the chat_message table. Messages are append-only: a
// conversation is an ordered log that is never mutated after insertion.
type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Sender    Sender    `db:"sender" json:"sender"`
	Text      string    `db:"text" json:"text"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// HistoryEntry is a Message with its timestamp serialized for the
// generation backend.
type HistoryEntry struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Request is the per-turn input to the generation pipeline. It is built
// fresh for every turn and never persisted.
type Request struct {
	History        []HistoryEntry `json:"history"`
	CurrentMessage string         `json:"currentMessage"`
	PatientName    string         `json:"patientName,omitempty"`
}

// Response is the generation pipeline output. Response always contains the
// Disclaimer substring, except for the fixed fallback sentence.
type Response struct {
	Response string `json:"response"`
}

// Disclaimer is the safety sentence mandatory on every assistant-authored
// reply. Presence is checked byte-for-byte.
const Disclaimer = "Please remember, I am an AI assistant and not a real doctor. My advice is not a substitute for professional medical care. Always consult with a qualified healthcare provider for any medical concerns."

// FallbackMessage is returned when the backend yields no usable output. It
// carries no medical advice, so the disclaimer is not appended to it.
const FallbackMessage = "I'm sorry, I wasn't able to generate a response. Please try again."

// ApologyMessage is inserted into the conversation when the backend call
// itself fails. Static pre-approved text, exempt from disclaimer injection.
const ApologyMessage = "I'm sorry, I encountered an error trying to respond. Please try again later."

// Greeting seeds a new conversation.
const Greeting = "Hello! I'm MediChat, your AI assistant. How can I help you today?"
