package bot

import (
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/qabot/core/logger"
	coretelegram "github.com/m3rciful/qabot/core/telegram"
	"github.com/m3rciful/qabot/core/telegram/callbacks"
	"github.com/m3rciful/qabot/core/telegram/commands"
	tghelpers "github.com/m3rciful/qabot/core/telegram/helpers"
	"github.com/m3rciful/qabot/core/telegram/keyboard"
	"github.com/m3rciful/qabot/internal/flow"
	"github.com/m3rciful/qabot/internal/messages"
	"github.com/m3rciful/qabot/internal/pdftext"

	tele "gopkg.in/telebot.v4"
)

const contextPreviewLimit = 1500

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.onStart,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.onHelp,
		Description: "How to use the bot",
		Label:       messages.LabelHelp,
	})
	reg.RegisterCommand("/create_testcase", commands.Command{
		Handler:     a.onCreate,
		Description: "Generate test cases from a PRD",
		Label:       messages.LabelCreate,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.onCancel,
		Description: "Abort the current task",
	})
	reg.RegisterCommand("/set_context", commands.Command{
		Handler:     a.onSetContext,
		Description: "Store PRD text for this chat",
	})
	reg.RegisterCommand("/show_context", commands.Command{
		Handler:     a.onShowContext,
		Description: "Show the stored PRD text",
		Label:       messages.LabelContext,
	})
	reg.RegisterCommand("/clear_context", commands.Command{
		Handler:     a.onClearContext,
		Description: "Forget the stored PRD text",
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) {
	_ = reg.RegisterCallback(flow.CallbackKeyFormat, a.onFormatCallback)
	_ = reg.RegisterCallback(flow.CallbackKeyAction, a.onActionCallback)
}

func (a *App) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a.engine.Reset(ctx, chatID(c))
	return tghelpers.SendText(c, messages.Welcome(),
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (a *App) onHelp(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a.engine.Reset(ctx, chatID(c))
	return tghelpers.SendText(c, messages.Help(),
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (a *App) onCreate(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := a.engine.StartTask(ctx, chatID(c))
	return sendReply(c, reply)
}

func (a *App) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, _ := a.engine.Cancel(ctx, chatID(c))
	return sendReply(c, reply)
}

func (a *App) onSetContext(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return tghelpers.SendText(c, messages.ContextUsage())
	}
	if err := a.prd.Set(ctx, chatID(c), text); err != nil {
		logger.Error(ctx, "store", "context.set_failed",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.ContextFailed())
	}
	return tghelpers.SendText(c, messages.ContextSet(utf8.RuneCountInString(text)))
}

func (a *App) onShowContext(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text, ok, err := a.prd.Get(ctx, chatID(c))
	if err != nil {
		logger.Error(ctx, "store", "context.get_failed",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.ContextEmpty())
	}
	if !ok {
		return tghelpers.SendText(c, messages.ContextEmpty())
	}
	return tghelpers.SendText(c, messages.ContextPreview(text, contextPreviewLimit))
}

func (a *App) onClearContext(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := a.prd.Clear(ctx, chatID(c)); err != nil {
		logger.Error(ctx, "store", "context.clear_failed",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
	}
	return tghelpers.SendText(c, messages.ContextCleared())
}

// onFormatCallback handles the format choice buttons. Unsupported payloads
// are acknowledged upstream and otherwise ignored.
func (a *App) onFormatCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	payload := callbacks.CallbackPayload(c)
	reply, handled := a.engine.ChooseFormat(ctx, chatID(c), payload)
	if !handled {
		return nil
	}
	return tghelpers.EditOrSendMD(c, reply.Text)
}

func (a *App) onActionCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if callbacks.CallbackPayload(c) != flow.PayloadCancel {
		return nil
	}
	reply, _ := a.engine.Cancel(ctx, chatID(c))
	return tghelpers.EditOrSendMD(c, reply.Text)
}

// onDocument stores the text of an uploaded PDF as the chat's PRD context.
// Uploads are handled the same way with or without a pending task.
func (a *App) onDocument(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	if !isPDF(doc) {
		return tghelpers.SendText(c, messages.PDFUnsupported())
	}
	maxSize := a.cfg.Bot.MaxPDFSizeBytes
	if doc.FileSize > maxSize {
		return tghelpers.SendText(c, messages.PDFTooLarge(maxSize))
	}

	_ = c.Notify(tele.Typing)

	rc, err := c.Bot().File(&doc.File)
	if err != nil {
		logger.Error(ctx, "pdf", "download.fail",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.PDFFailed("download failed"))
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		logger.Error(ctx, "pdf", "download.fail",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.PDFFailed("download failed"))
	}
	if int64(len(data)) > maxSize {
		return tghelpers.SendText(c, messages.PDFTooLarge(maxSize))
	}

	text, err := pdftext.Extract(data)
	if err != nil {
		logger.Warn(ctx, "pdf", "extract.fail",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.PDFFailed(err.Error()))
	}

	if err := a.prd.Set(ctx, chatID(c), text); err != nil {
		logger.Error(ctx, "store", "context.set_failed",
			slog.Int64("chat_id", chatID(c)),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, messages.PDFFailed("could not store the extracted text"))
	}

	logger.Info(ctx, "pdf", "extract.success",
		slog.Int64("chat_id", chatID(c)),
		slog.Int("chars", utf8.RuneCountInString(text)),
	)
	return tghelpers.SendText(c, messages.PDFStored(doc.FileName, utf8.RuneCountInString(text)))
}

func (a *App) onUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, messages.DontUnderstand())
}

func isPDF(doc *tele.Document) bool {
	if doc.MIME == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(doc.FileName), ".pdf")
}

func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{messages.LabelCreate},
		[]string{messages.LabelContext, messages.LabelHelp},
	)
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

// sendReply renders an engine reply, attaching an inline keyboard when the
// reply carries choices. Format buttons share a row, cancel gets its own.
func sendReply(c tele.Context, r flow.Reply) error {
	if len(r.Choices) == 0 {
		return tghelpers.SendText(c, r.Text)
	}
	var choiceRow, actionRow []keyboard.InlineBtn
	for _, ch := range r.Choices {
		btn := keyboard.InlineBtn{Text: ch.Label, Unique: ch.Key, Data: ch.Payload}
		if ch.Key == flow.CallbackKeyAction {
			actionRow = append(actionRow, btn)
		} else {
			choiceRow = append(choiceRow, btn)
		}
	}
	rows := [][]keyboard.InlineBtn{choiceRow}
	if len(actionRow) > 0 {
		rows = append(rows, actionRow)
	}
	markup := keyboard.InlineButtonsRows(rows...)
	return tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: markup})
}
