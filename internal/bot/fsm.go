package bot

import (
	"context"

	tghelpers "github.com/m3rciful/qabot/core/telegram/helpers"
	"github.com/m3rciful/qabot/internal/flow"
	"github.com/m3rciful/qabot/internal/task"

	tele "gopkg.in/telebot.v4"
)

// fsmAdapter bridges the conversation engine to the text router.
type fsmAdapter struct {
	engine *flow.Engine
}

func (f *fsmAdapter) InProgress(chatID int64) bool {
	return f.engine.InProgress(context.Background(), chatID)
}

func (f *fsmAdapter) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id := chatID(c)
	if f.engine.StateOf(ctx, id) == task.StateWaitingPRD {
		// The generation call can take a while.
		_ = c.Notify(tele.Typing)
	}
	reply := f.engine.HandleText(ctx, id, c.Text())
	return sendReply(c, reply)
}
