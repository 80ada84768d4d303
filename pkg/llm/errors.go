package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAllProvidersExhausted is the sentinel wrapped by ExhaustedError so
// callers can branch with errors.Is.
var ErrAllProvidersExhausted = errors.New("all providers failed")

// Attempt records one failed provider attempt during a fallback walk.
// Skipped candidates (missing credentials) are not recorded; they were
// never attempted.
type Attempt struct {
	Provider string
	Model    string
	Err      error
}

// ExhaustedError reports that every attemptable candidate in the chain
// failed, carrying the per-attempt causes for diagnosis.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no candidates attempted, check credentials"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", a.Provider, a.Model, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Unwrap() error { return ErrAllProvidersExhausted }
