// Package task stores the single pending test-case task per conversation.
// Records expire after a configurable TTL so abandoned tasks self-clean.
package task

import "context"

// State identifies a step of the test-case conversation flow.
type State string

const (
	// StateWaitingFormat means the bot offered the format choice and waits
	// for the user to pick one.
	StateWaitingFormat State = "waiting_format"
	// StateWaitingPRD means a format is chosen and the bot waits for the
	// PRD text.
	StateWaitingPRD State = "waiting_prd"
)

// Known reports whether s is a state this code understands. Anything else
// found in a store is stale or corrupted and must be cleared.
func Known(s State) bool {
	switch s {
	case StateWaitingFormat, StateWaitingPRD:
		return true
	}
	return false
}

// DataFormat is the Record.Data key holding the chosen output format.
const DataFormat = "format"

// Record is the pending task kept per conversation.
type Record struct {
	State State             `json:"state"`
	Data  map[string]string `json:"data,omitempty"`
}

// NewRecord builds a record in the given state with an empty data map.
func NewRecord(state State) Record {
	return Record{State: state, Data: map[string]string{}}
}

// Store keeps at most one pending task per chat. A Save overwrites any prior
// record for the chat. Implementations must be safe for concurrent use across
// chats, apply last-write-wins per chat, and report expired records as absent.
// Clear on an absent key is a no-op.
type Store interface {
	Save(ctx context.Context, chatID int64, rec Record) error
	Get(ctx context.Context, chatID int64) (Record, bool, error)
	Clear(ctx context.Context, chatID int64) error
}
