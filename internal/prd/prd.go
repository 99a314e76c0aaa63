// Package prd stores the active PRD text per conversation. Unlike pending
// tasks, the context has no expiry: it lives until overwritten or cleared.
package prd

import "context"

// Store keeps one optional PRD text per chat. Implementations must be safe
// for concurrent access across chats. Clear on an absent chat is a no-op.
type Store interface {
	Set(ctx context.Context, chatID int64, text string) error
	Get(ctx context.Context, chatID int64) (string, bool, error)
	Clear(ctx context.Context, chatID int64) error
}
