package llm

import (
	"strings"
	"testing"
)

func TestBuildPromptEmbedsPRDVerbatim(t *testing.T) {
	const prd = "Login must support SSO\nwith  odd   spacing"
	_, user := BuildPrompt(Request{Format: "bdd", PRD: prd})
	if !strings.Contains(user, prd) {
		t.Fatalf("user prompt does not embed PRD verbatim:\n%s", user)
	}
	if !strings.Contains(user, "Gherkin") {
		t.Fatalf("bdd prompt missing Gherkin instruction:\n%s", user)
	}
}

func TestBuildPromptFormatSelection(t *testing.T) {
	_, steps := BuildPrompt(Request{Format: "steps", PRD: "x"})
	if !strings.Contains(steps, "numbered steps") {
		t.Fatalf("steps prompt missing steps instruction:\n%s", steps)
	}
	// Unknown formats fall back to classic steps.
	_, fallback := BuildPrompt(Request{Format: "", PRD: "x"})
	if !strings.Contains(fallback, "numbered steps") {
		t.Fatalf("fallback prompt missing steps instruction:\n%s", fallback)
	}
}

func TestBuildPromptReference(t *testing.T) {
	_, without := BuildPrompt(Request{Format: "steps", PRD: "x"})
	if strings.Contains(without, "Reference document") {
		t.Fatal("reference section present without reference text")
	}
	_, with := BuildPrompt(Request{Format: "steps", PRD: "x", Reference: "uploaded spec"})
	if !strings.Contains(with, "Reference document:\nuploaded spec") {
		t.Fatalf("reference text not embedded:\n%s", with)
	}
}
