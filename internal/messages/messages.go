// Package messages holds every user-facing reply text in one place.
package messages

import (
	"fmt"
	"strings"
)

// Button labels shown on the persistent reply keyboard.
const (
	LabelCreate  = "📝 Create test cases"
	LabelContext = "📄 Show context"
	LabelHelp    = "ℹ️ Help"
)

// Format button labels for the inline format choice.
const (
	LabelFormatSteps = "📋 Classic steps"
	LabelFormatBDD   = "🥒 BDD (Gherkin)"
	LabelCancel      = "❌ Cancel"
)

func Welcome() string {
	return "Hi! 👋 I turn product requirements into QA test cases.\n\n" +
		"Paste a PRD with /set_context, upload a PDF, or just run " +
		"/create_testcase and send the requirements when asked."
}

func Help() string {
	return "Available commands:\n" +
		"/create_testcase — start generating test cases\n" +
		"/set_context <text> — store PRD text for this chat\n" +
		"/show_context — show the stored PRD text\n" +
		"/clear_context — forget the stored PRD text\n" +
		"/cancel — abort the current task\n" +
		"/help — this message\n\n" +
		"You can also upload a PDF; I will extract its text and keep it " +
		"as context."
}

func ChooseFormat() string {
	return "Which format do you want the test cases in?"
}

func FormatChosen(format string) string {
	name := "classic steps"
	if format == "bdd" {
		name = "BDD scenarios"
	}
	return fmt.Sprintf("Format: %s.\n\nNow send me the requirements text "+
		"(or a short feature description).", name)
}

func Cancelled() string {
	return "Cancelled. Nothing is pending now."
}

func NothingToCancel() string {
	return "Nothing to cancel — no task is in progress."
}

func DontUnderstand() string {
	return "I don't understand that. Use the menu or /help."
}

func StateError() string {
	return "Something went wrong with your task state, so I reset it. " +
		"Please start again with /create_testcase."
}

func PickFormatFirst() string {
	return "Please pick a format using the buttons above, or /cancel."
}

func GenerationFailed(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return "Sorry, I could not generate test cases. Please try again."
	}
	return fmt.Sprintf("Sorry, I could not generate test cases: %s", detail)
}

func ContextSet(chars int) string {
	return fmt.Sprintf("Got it — stored %d characters as PRD context for "+
		"this chat.", chars)
}

func ContextUsage() string {
	return "Usage: /set_context <requirements text>"
}

func ContextEmpty() string {
	return "No PRD context stored. Use /set_context or upload a PDF."
}

func ContextFailed() string {
	return "I could not store the context right now. Please try again."
}

func ContextCleared() string {
	return "PRD context cleared."
}

// ContextPreview truncates stored context for display.
func ContextPreview(text string, limit int) string {
	r := []rune(strings.TrimSpace(text))
	if limit > 0 && len(r) > limit {
		return "Stored context (truncated):\n\n" + string(r[:limit]) + "…"
	}
	return "Stored context:\n\n" + string(r)
}

func PDFStored(name string, chars int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("Extracted %d characters from %s and stored them as "+
		"PRD context.", chars, name)
}

func PDFUnsupported() string {
	return "I can only read PDF documents. Send the text directly, or " +
		"upload a PDF."
}

func PDFTooLarge(maxBytes int64) string {
	return fmt.Sprintf("That file is too large; the limit is %d MB.",
		maxBytes>>20)
}

func PDFFailed(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return "I could not read that PDF."
	}
	return fmt.Sprintf("I could not read that PDF: %s", detail)
}

func OnlyTextAndPDF() string {
	return "I can only handle text and PDF documents."
}

func RateLimited() string {
	return "Too fast 🙂 give me a second."
}
