package llm

import "fmt"

// ErrorKind classifies generation failures.
type ErrorKind string

const (
	// KindBackend marks transport or API failures from the model backend.
	KindBackend ErrorKind = "backend"
	// KindEmpty marks a structurally valid response with no usable text.
	KindEmpty ErrorKind = "empty"
)

// Error is a classified generation failure.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("generation %s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }
