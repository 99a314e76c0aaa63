package llm

import "strings"

const systemPrompt = `You are a senior QA engineer. You turn product ` +
	`requirements into concrete, executable test cases. Cover the happy ` +
	`path, edge cases, and failure modes. Do not invent requirements that ` +
	`are not in the text. Answer with the test cases only.`

const stepsInstruction = `Write classic test cases. For each case give a ` +
	`title, preconditions, numbered steps, and the expected result of each ` +
	`step.`

const bddInstruction = `Write test cases as BDD scenarios in Gherkin. For ` +
	`each scenario use Scenario, Given, When, Then (and And where needed).`

// BuildPrompt composes the system and user messages for a request. The PRD
// text is embedded verbatim; the stored reference document, when present, is
// appended as supporting material.
func BuildPrompt(req Request) (system, user string) {
	var b strings.Builder
	switch req.Format {
	case "bdd":
		b.WriteString(bddInstruction)
	default:
		b.WriteString(stepsInstruction)
	}
	b.WriteString("\n\nRequirements:\n")
	b.WriteString(req.PRD)
	if req.Reference != "" {
		b.WriteString("\n\nReference document:\n")
		b.WriteString(req.Reference)
	}
	return systemPrompt, b.String()
}
