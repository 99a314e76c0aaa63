package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Label is the reply-keyboard button text that translates to this command.
	Label   string
	Hidden  bool
	Aliases []string
}
