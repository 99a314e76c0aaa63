package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/qabot/internal/llm"
	"github.com/m3rciful/qabot/internal/task"
)

type fakeTasks struct {
	mu        sync.Mutex
	recs      map[int64]task.Record
	failReads bool
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{recs: map[int64]task.Record{}}
}

func (f *fakeTasks) Save(_ context.Context, chatID int64, rec task.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[chatID] = rec
	return nil
}

func (f *fakeTasks) Get(_ context.Context, chatID int64) (task.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return task.Record{}, false, errors.New("store down")
	}
	rec, ok := f.recs[chatID]
	return rec, ok, nil
}

func (f *fakeTasks) Clear(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, chatID)
	return nil
}

func (f *fakeTasks) state(chatID int64) (task.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[chatID]
	return rec, ok
}

type fakePRD struct {
	mu    sync.Mutex
	texts map[int64]string
}

func newFakePRD() *fakePRD { return &fakePRD{texts: map[int64]string{}} }

func (f *fakePRD) Set(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[chatID] = text
	return nil
}

func (f *fakePRD) Get(_ context.Context, chatID int64) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.texts[chatID]
	return text, ok, nil
}

func (f *fakePRD) Clear(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.texts, chatID)
	return nil
}

type fakeGen struct {
	mu    sync.Mutex
	calls []llm.Request
	out   string
	err   error
}

func (f *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return "TC-1: " + req.PRD, nil
}

func (f *fakeGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGen) lastCall(t *testing.T) llm.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("generator was never called")
	}
	return f.calls[len(f.calls)-1]
}

func newEngine(t *testing.T) (*Engine, *fakeTasks, *fakePRD, *fakeGen) {
	t.Helper()
	tasks := newFakeTasks()
	prdStore := newFakePRD()
	gen := &fakeGen{}
	return New(tasks, prdStore, gen, Options{}), tasks, prdStore, gen
}

func TestFullFlowGeneratesOnce(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(100)
	const prdText = "Login must support SSO via SAML and OAuth2."

	start := eng.StartTask(ctx, chatID)
	if len(start.Choices) != 3 {
		t.Fatalf("start offered %d choices, want steps, bdd and cancel", len(start.Choices))
	}
	if rec, ok := tasks.state(chatID); !ok || rec.State != task.StateWaitingFormat {
		t.Fatalf("after start: state %v present=%v, want waiting_format", rec.State, ok)
	}

	if _, handled := eng.ChooseFormat(ctx, chatID, FormatSteps); !handled {
		t.Fatal("steps format was not handled")
	}
	if rec, _ := tasks.state(chatID); rec.State != task.StateWaitingPRD {
		t.Fatalf("after format: state = %v, want waiting_prd", rec.State)
	}

	reply := eng.HandleText(ctx, chatID, prdText)
	if gen.callCount() != 1 {
		t.Fatalf("generator called %d times, want 1", gen.callCount())
	}
	req := gen.lastCall(t)
	if req.Format != FormatSteps {
		t.Errorf("request format = %q, want %q", req.Format, FormatSteps)
	}
	if req.PRD != prdText {
		t.Errorf("PRD not passed verbatim: %q", req.PRD)
	}
	if !strings.Contains(reply.Text, prdText) {
		t.Errorf("reply does not carry generator output: %q", reply.Text)
	}
	if _, ok := tasks.state(chatID); ok {
		t.Error("task still pending after successful generation")
	}

	// A follow-up message must not re-trigger generation.
	eng.HandleText(ctx, chatID, "thanks")
	if gen.callCount() != 1 {
		t.Fatalf("follow-up text re-triggered generation: %d calls", gen.callCount())
	}
}

func TestGenerationFailureClearsTask(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	gen.err = &llm.Error{Kind: llm.KindBackend, Detail: "model overloaded"}
	const chatID = int64(101)

	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatBDD)
	reply := eng.HandleText(ctx, chatID, "Checkout applies discount codes.")

	if !strings.Contains(reply.Text, "model overloaded") {
		t.Errorf("failure reply misses error detail: %q", reply.Text)
	}
	if _, ok := tasks.state(chatID); ok {
		t.Error("task survived a failed generation; it must be consumed first")
	}
}

func TestBDDFormatFlowsToGenerator(t *testing.T) {
	ctx := context.Background()
	eng, _, _, gen := newEngine(t)
	const chatID = int64(102)

	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatBDD)
	eng.HandleText(ctx, chatID, "Password reset flow")

	if got := gen.lastCall(t).Format; got != FormatBDD {
		t.Fatalf("format = %q, want %q", got, FormatBDD)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(103)

	if _, existed := eng.Cancel(ctx, chatID); existed {
		t.Error("cancel with no task reported an existing one")
	}

	eng.StartTask(ctx, chatID)
	if _, existed := eng.Cancel(ctx, chatID); !existed {
		t.Error("cancel in waiting_format did not report the task")
	}
	if _, ok := tasks.state(chatID); ok {
		t.Error("task not cleared by cancel")
	}

	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatSteps)
	if _, existed := eng.Cancel(ctx, chatID); !existed {
		t.Error("cancel in waiting_prd did not report the task")
	}
	eng.HandleText(ctx, chatID, "this PRD arrives after cancel")
	if gen.callCount() != 0 {
		t.Fatalf("generation ran after cancel: %d calls", gen.callCount())
	}
}

func TestUnknownFormatPayloadIgnored(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, _ := newEngine(t)
	const chatID = int64(104)

	eng.StartTask(ctx, chatID)
	if _, handled := eng.ChooseFormat(ctx, chatID, "yaml"); handled {
		t.Error("unknown format payload was handled")
	}
	if rec, _ := tasks.state(chatID); rec.State != task.StateWaitingFormat {
		t.Errorf("unknown payload changed state to %v", rec.State)
	}
}

func TestConcurrentConversationsAreIsolated(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)

	var wg sync.WaitGroup
	for i := range 8 {
		chatID := int64(200 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.StartTask(ctx, chatID)
			format := FormatSteps
			if chatID%2 == 0 {
				format = FormatBDD
			}
			eng.ChooseFormat(ctx, chatID, format)
			eng.HandleText(ctx, chatID, fmt.Sprintf("requirements for chat %d", chatID))
		}()
	}
	wg.Wait()

	if gen.callCount() != 8 {
		t.Fatalf("generator called %d times, want 8", gen.callCount())
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	for _, req := range gen.calls {
		var chatID int64
		if _, err := fmt.Sscanf(req.PRD, "requirements for chat %d", &chatID); err != nil {
			t.Fatalf("unexpected PRD: %q", req.PRD)
		}
		wantFormat := FormatSteps
		if chatID%2 == 0 {
			wantFormat = FormatBDD
		}
		if req.Format != wantFormat {
			t.Errorf("chat %d: format %q leaked from another conversation", chatID, req.Format)
		}
		if _, ok := tasks.state(chatID); ok {
			t.Errorf("chat %d: task still pending", chatID)
		}
	}
}

func TestUnknownStateClearsAndReports(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(105)

	rec := task.NewRecord(task.State("waiting_unicorn"))
	if err := tasks.Save(ctx, chatID, rec); err != nil {
		t.Fatal(err)
	}

	reply := eng.HandleText(ctx, chatID, "some text")
	if gen.callCount() != 0 {
		t.Error("generation ran from an unknown state")
	}
	if _, ok := tasks.state(chatID); ok {
		t.Error("unknown-state task was not cleared")
	}
	if reply.Text == "" {
		t.Error("user got no error reply for the broken task")
	}
}

func TestTextWhileWaitingFormatKeepsTask(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(106)

	eng.StartTask(ctx, chatID)
	reply := eng.HandleText(ctx, chatID, "steps please")

	if gen.callCount() != 0 {
		t.Error("free text in waiting_format triggered generation")
	}
	if rec, ok := tasks.state(chatID); !ok || rec.State != task.StateWaitingFormat {
		t.Errorf("state after reminder: %v present=%v, want waiting_format kept", rec.State, ok)
	}
	if reply.Text == "" {
		t.Error("no reminder reply")
	}
}

func TestMissingFormatDefaultsToSteps(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(107)

	// A record written by an older build may lack the format entry.
	if err := tasks.Save(ctx, chatID, task.NewRecord(task.StateWaitingPRD)); err != nil {
		t.Fatal(err)
	}
	eng.HandleText(ctx, chatID, "legacy task text")

	if got := gen.lastCall(t).Format; got != FormatSteps {
		t.Fatalf("format = %q, want default %q", got, FormatSteps)
	}
}

func TestStoreReadFailureDegradesToNoTask(t *testing.T) {
	ctx := context.Background()
	eng, tasks, _, gen := newEngine(t)
	const chatID = int64(108)

	eng.StartTask(ctx, chatID)
	tasks.failReads = true

	if eng.InProgress(ctx, chatID) {
		t.Error("InProgress true while the store is failing")
	}
	eng.HandleText(ctx, chatID, "text during outage")
	if gen.callCount() != 0 {
		t.Error("generation ran on a failing store read")
	}
}

func TestReferenceContextIncluded(t *testing.T) {
	ctx := context.Background()
	eng, _, prdStore, gen := newEngine(t)
	const chatID = int64(109)
	const reference = "Product glossary: SKU means stock keeping unit."

	if err := prdStore.Set(ctx, chatID, reference); err != nil {
		t.Fatal(err)
	}

	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatSteps)
	eng.HandleText(ctx, chatID, "Inventory sync requirements")
	if got := gen.lastCall(t).Reference; got != reference {
		t.Fatalf("reference = %q, want stored context", got)
	}

	// The context store is durable: a second task sees it again.
	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatSteps)
	eng.HandleText(ctx, chatID, "Second round")
	if got := gen.lastCall(t).Reference; got != reference {
		t.Fatalf("reference consumed by first task: %q", got)
	}
}

func TestHistoryDisabledByDefault(t *testing.T) {
	ctx := context.Background()
	eng, _, _, gen := newEngine(t)
	const chatID = int64(110)

	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatSteps)
	eng.HandleText(ctx, chatID, "first")
	eng.StartTask(ctx, chatID)
	eng.ChooseFormat(ctx, chatID, FormatSteps)
	eng.HandleText(ctx, chatID, "second")

	if got := gen.lastCall(t).History; len(got) != 0 {
		t.Fatalf("history sent while disabled: %d messages", len(got))
	}
}

func TestHistoryCarriesPriorTurns(t *testing.T) {
	ctx := context.Background()
	tasks := newFakeTasks()
	gen := &fakeGen{out: "generated cases"}
	eng := New(tasks, newFakePRD(), gen, Options{IncludeHistory: true, HistoryDepth: 2})
	const chatID = int64(111)

	for i := range 3 {
		eng.StartTask(ctx, chatID)
		eng.ChooseFormat(ctx, chatID, FormatSteps)
		eng.HandleText(ctx, chatID, fmt.Sprintf("round %d", i))
	}

	hist := gen.lastCall(t).History
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4 (depth 2, trimmed)", len(hist))
	}
	if hist[0].Role != llm.RoleUser || hist[0].Content != "round 0" {
		t.Errorf("oldest kept turn = %+v, want user round 0", hist[0])
	}
	if hist[3].Role != llm.RoleAssistant || hist[3].Content != "generated cases" {
		t.Errorf("newest turn = %+v", hist[3])
	}
}
