// Package ledger keeps the ordered conversation history an agent reasons
// over. The first entry is the pinned system message; nothing here ever
// evicts or reorders it. The ledger does no locking: the reasoning loop
// that owns it is single-threaded and serialization happens above it.
package ledger

import "github.com/growup62/openapex/pkg/llm"

// Ledger is an append-only conversation history.
type Ledger struct {
	messages []llm.Message
}

// New seeds a ledger with its pinned system entry.
func New(systemPrompt string) *Ledger {
	return &Ledger{messages: []llm.Message{{Role: "system", Content: systemPrompt}}}
}

// Append adds a message to the end of the history.
func (l *Ledger) Append(msg llm.Message) {
	l.messages = append(l.messages, msg)
}

// All returns a copy of the history in insertion order.
func (l *Ledger) All() []llm.Message {
	out := make([]llm.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of entries, system message included.
func (l *Ledger) Len() int {
	return len(l.messages)
}

// System returns the pinned system entry.
func (l *Ledger) System() llm.Message {
	return l.messages[0]
}

// ReplaceSystem swaps the pinned system entry's content in place.
func (l *Ledger) ReplaceSystem(content string) {
	l.messages[0].Content = content
}
