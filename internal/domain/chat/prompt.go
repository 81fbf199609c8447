package chat

import (
	"fmt"
	"strings"
)

// prompt.go renders the fixed prompt template for the generation backend.
// Keeping the template in one file makes it easy to tweak without touching
// the pipeline.

// systemPromptTemplate binds the assistant persona, the addressee, and the
// disclaimer instruction. The disclaimer instruction is soft guidance to the
// backend; the hard guarantee lives in the Generator.
const systemPromptTemplate = `You are MediChat, a friendly and helpful AI medical assistant.
Your goal is to provide general medical information and support to users.
You are speaking to %s.

IMPORTANT: You must ALWAYS include the following disclaimer at the end of your response, on a new line:
"%s"

If the user asks for a diagnosis or treatment for a specific condition, gently decline and advise them to see a doctor.
Do not attempt to prescribe medication.
If the query is very general (e.g. "What is a headache?"), you can provide general information.
Keep your responses concise and easy to understand.`

// SystemPrompt renders the system prompt. When the patient's name is not
// known a generic address term is used.
func SystemPrompt(patientName string) string {
	addressee := "a user"
	if patientName != "" {
		addressee = patientName
	}
	return fmt.Sprintf(systemPromptTemplate, addressee, Disclaimer)
}

// UserPrompt renders the conversation history and the current utterance.
// Each history entry is formatted as "- <Sender> (at <timestamp>): <text>".
func UserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Conversation History (if any):\n")
	for _, e := range req.History {
		label := "User"
		if e.Sender == SenderAI {
			label = "AI"
		}
		fmt.Fprintf(&b, "- %s (at %s): %s\n", label, e.Timestamp, e.Text)
	}

	b.WriteString("\nCurrent User Message:\n")
	b.WriteString(req.CurrentMessage)
	b.WriteString("\n\nBased on the conversation history and the current user message, provide a helpful and empathetic response.")

	return b.String()
}
