// Package llm turns a format choice plus PRD text into generated QA test
// cases. The backend is opaque and may fail; failures carry a kind so the
// reply layer can phrase them.
package llm

import "context"

// Role values for history messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversation turn supplied to the backend.
type Message struct {
	Role    string
	Content string
}

// Request describes one generation call.
type Request struct {
	// Format selects the output style: "steps" or "bdd".
	Format string
	// PRD is the requirements text submitted by the user, passed verbatim.
	PRD string
	// Reference is the stored PRD context for the chat, if any.
	Reference string
	// History carries prior turns when history passing is enabled.
	History []Message
}

// Generator produces test cases for a request or fails with an *Error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
