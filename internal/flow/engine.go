// Package flow drives the test-case conversation: format selection, PRD
// collection, and the generation call. It is transport-free; handlers feed
// it classified input and render the replies it returns.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/m3rciful/qabot/core/logger"
	"github.com/m3rciful/qabot/internal/llm"
	"github.com/m3rciful/qabot/internal/messages"
	"github.com/m3rciful/qabot/internal/prd"
	"github.com/m3rciful/qabot/internal/task"
)

// Supported output formats.
const (
	FormatSteps = "steps"
	FormatBDD   = "bdd"
)

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f string) bool {
	return f == FormatSteps || f == FormatBDD
}

// Callback keys used by the inline keyboards this engine asks for.
const (
	CallbackKeyFormat = "format"
	CallbackKeyAction = "action"
	PayloadCancel     = "cancel"
)

// Choice is one inline button: Key and Payload form the callback data.
type Choice struct {
	Label   string
	Key     string
	Payload string
}

// Reply is what a transition asks the transport to send back.
type Reply struct {
	Text    string
	Choices []Choice
}

// Options tunes engine behaviour.
type Options struct {
	// IncludeHistory passes recent user/assistant turns to the generator.
	IncludeHistory bool
	// HistoryDepth is the number of prior exchanges kept per chat; 0 -> 5.
	HistoryDepth int
}

// Engine is the per-conversation state machine. All store access is keyed by
// chat id; conversations never observe each other's records.
type Engine struct {
	tasks task.Store
	prd   prd.Store
	gen   llm.Generator
	opts  Options

	histMu  sync.Mutex
	history map[int64][]llm.Message
}

// New wires the engine with its collaborators.
func New(tasks task.Store, prdStore prd.Store, gen llm.Generator, opts Options) *Engine {
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 5
	}
	return &Engine{
		tasks:   tasks,
		prd:     prdStore,
		gen:     gen,
		opts:    opts,
		history: make(map[int64][]llm.Message),
	}
}

// StartTask begins a new test-case task, overwriting any prior one, and
// returns the format choice.
func (e *Engine) StartTask(ctx context.Context, chatID int64) Reply {
	e.saveTask(ctx, chatID, task.NewRecord(task.StateWaitingFormat))
	return Reply{
		Text: messages.ChooseFormat(),
		Choices: []Choice{
			{Label: messages.LabelFormatSteps, Key: CallbackKeyFormat, Payload: FormatSteps},
			{Label: messages.LabelFormatBDD, Key: CallbackKeyFormat, Payload: FormatBDD},
			{Label: messages.LabelCancel, Key: CallbackKeyAction, Payload: PayloadCancel},
		},
	}
}

// ChooseFormat records the picked format and asks for the PRD text. An
// unsupported format is ignored (handled == false) so unknown callback
// payloads stay forward-compatible no-ops.
func (e *Engine) ChooseFormat(ctx context.Context, chatID int64, format string) (Reply, bool) {
	if !ValidFormat(format) {
		return Reply{}, false
	}
	rec := task.NewRecord(task.StateWaitingPRD)
	rec.Data[task.DataFormat] = format
	e.saveTask(ctx, chatID, rec)
	return Reply{Text: messages.FormatChosen(format)}, true
}

// Reset silently drops any pending task. Used by commands that restart the
// conversation without reporting a cancellation.
func (e *Engine) Reset(ctx context.Context, chatID int64) {
	e.clearTask(ctx, chatID)
}

// Cancel aborts any pending task. existed reports whether there was one.
func (e *Engine) Cancel(ctx context.Context, chatID int64) (Reply, bool) {
	_, existed := e.getTask(ctx, chatID)
	e.clearTask(ctx, chatID)
	if existed {
		return Reply{Text: messages.Cancelled()}, true
	}
	return Reply{Text: messages.NothingToCancel()}, false
}

// InProgress reports whether the chat has a pending task. Store failures
// degrade to "no task" so a broken backend resets flows instead of wedging
// them.
func (e *Engine) InProgress(ctx context.Context, chatID int64) bool {
	_, ok := e.getTask(ctx, chatID)
	return ok
}

// StateOf returns the pending task's state, or "" when there is none.
func (e *Engine) StateOf(ctx context.Context, chatID int64) task.State {
	rec, ok := e.getTask(ctx, chatID)
	if !ok {
		return ""
	}
	return rec.State
}

// HandleText advances the state machine with non-command text.
func (e *Engine) HandleText(ctx context.Context, chatID int64, text string) Reply {
	rec, ok := e.getTask(ctx, chatID)
	if !ok {
		return Reply{Text: messages.DontUnderstand()}
	}

	switch rec.State {
	case task.StateWaitingFormat:
		// Format is picked via buttons; keep the task and remind.
		return Reply{Text: messages.PickFormatFirst()}
	case task.StateWaitingPRD:
		return e.generate(ctx, chatID, rec, text)
	default:
		e.clearTask(ctx, chatID)
		logger.Error(ctx, "flow", "state.unknown",
			slog.Int64("chat_id", chatID),
			slog.String("task_state", string(rec.State)),
		)
		return Reply{Text: messages.StateError()}
	}
}

func (e *Engine) generate(ctx context.Context, chatID int64, rec task.Record, text string) Reply {
	format := rec.Data[task.DataFormat]
	if !ValidFormat(format) {
		// Should be unreachable: the format transition always stores one.
		format = FormatSteps
	}

	// Consume the task before the model call so a slow or failed call
	// cannot re-trigger on the user's next message.
	e.clearTask(ctx, chatID)

	reference := ""
	if e.prd != nil {
		ref, ok, err := e.prd.Get(ctx, chatID)
		if err != nil {
			logger.Warn(ctx, "flow", "context.read_failed",
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
		} else if ok {
			reference = ref
		}
	}

	req := llm.Request{
		Format:    format,
		PRD:       text,
		Reference: reference,
		History:   e.historyFor(chatID),
	}
	out, err := e.gen.Generate(ctx, req)
	if err != nil {
		detail := err.Error()
		var lerr *llm.Error
		if errors.As(err, &lerr) {
			detail = lerr.Detail
		}
		logger.Error(ctx, "flow", "generate.fail",
			slog.Int64("chat_id", chatID),
			slog.String("format", format),
			slog.String("err", err.Error()),
		)
		return Reply{Text: messages.GenerationFailed(detail)}
	}

	e.recordTurn(chatID, text, out)
	return Reply{Text: out}
}

func (e *Engine) historyFor(chatID int64) []llm.Message {
	if !e.opts.IncludeHistory {
		return nil
	}
	e.histMu.Lock()
	defer e.histMu.Unlock()
	turns := e.history[chatID]
	out := make([]llm.Message, len(turns))
	copy(out, turns)
	return out
}

func (e *Engine) recordTurn(chatID int64, userText, botText string) {
	if !e.opts.IncludeHistory {
		return
	}
	e.histMu.Lock()
	defer e.histMu.Unlock()
	turns := append(e.history[chatID],
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleAssistant, Content: botText},
	)
	if max := e.opts.HistoryDepth * 2; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	e.history[chatID] = turns
}

// Store wrappers: backing-store failures are logged and degrade to
// absent/no-op so they never crash an update or leak to the user.

func (e *Engine) getTask(ctx context.Context, chatID int64) (task.Record, bool) {
	rec, ok, err := e.tasks.Get(ctx, chatID)
	if err != nil {
		logger.Warn(ctx, "flow", "task.read_failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return task.Record{}, false
	}
	return rec, ok
}

func (e *Engine) saveTask(ctx context.Context, chatID int64, rec task.Record) {
	if err := e.tasks.Save(ctx, chatID, rec); err != nil {
		logger.Warn(ctx, "flow", "task.write_failed",
			slog.Int64("chat_id", chatID),
			slog.String("task_state", string(rec.State)),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) clearTask(ctx context.Context, chatID int64) {
	if err := e.tasks.Clear(ctx, chatID); err != nil {
		logger.Warn(ctx, "flow", "task.clear_failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}
