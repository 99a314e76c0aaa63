package telegram

import (
	"testing"

	"github.com/m3rciful/qabot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func testRegistry() *Registry {
	noop := func(tele.Context) error { return nil }
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     noop,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     noop,
		Description: "Abort the current task",
	})
	reg.RegisterCommand("/create_testcase", commands.Command{
		Handler:     noop,
		Description: "Generate test cases",
		Label:       "📝 Create test cases",
		Aliases:     []string{"create"},
	})
	return reg
}

func TestLookupCommandFirstToken(t *testing.T) {
	reg := testRegistry()

	for _, input := range []string{
		"/cancel",
		"/cancel now",
		"/cancel\tnow",
		"/cancel\nnever mind",
	} {
		key, _, ok := reg.LookupCommand(input)
		if !ok || key != "/cancel" {
			t.Errorf("LookupCommand(%q) = %q, %v; want /cancel", input, key, ok)
		}
	}
}

func TestLookupCommandExactAndCaseSensitive(t *testing.T) {
	reg := testRegistry()

	for _, input := range []string{
		"/CANCEL",       // case matters
		"/cance",        // no prefix matching
		"/cancelled",    // no prefix matching the other way
		" /cancel",      // leading whitespace is not stripped
		"/unknown_cmd",  // unregistered
		"cancel please", // bare word is not a command
	} {
		if _, _, ok := reg.LookupCommand(input); ok {
			t.Errorf("LookupCommand(%q) matched, want miss", input)
		}
	}
}

func TestLookupCommandAlias(t *testing.T) {
	reg := testRegistry()

	key, _, ok := reg.LookupCommand("/create")
	if !ok || key != "/create_testcase" {
		t.Fatalf("alias lookup = %q, %v; want /create_testcase", key, ok)
	}
}

func TestLookupCommandButtonLabel(t *testing.T) {
	reg := testRegistry()

	key, _, ok := reg.LookupCommand("📝 Create test cases")
	if !ok || key != "/create_testcase" {
		t.Fatalf("label lookup = %q, %v; want /create_testcase", key, ok)
	}

	// Labels match the whole message only.
	if _, _, ok := reg.LookupCommand("📝 Create test cases please"); ok {
		t.Error("partial label matched, want miss")
	}
}

func TestCallbackRegistration(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }

	if err := reg.RegisterCallback("format", noop); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	if _, ok := reg.GetCallback("format"); !ok {
		t.Error("registered callback not found")
	}
	if _, ok := reg.GetCallback("unknown"); ok {
		t.Error("unknown callback key resolved")
	}
	if reg.CallbackNotFound() == nil {
		t.Error("default callback fallback is nil")
	}
}
