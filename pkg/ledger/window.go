package ledger

import "github.com/growup62/openapex/pkg/llm"

// charsPerToken is the rough budget conversion used for pruning.
const charsPerToken = 4

// Window is a size-bounded history for lighter-weight channels. Once the
// character budget is exceeded it prunes the oldest non-system entries,
// always preserving the pinned system message and the newest exchange.
type Window struct {
	maxChars int
	messages []llm.Message
}

// NewWindow creates a bounded history with a token budget.
func NewWindow(systemPrompt string, maxTokens int) *Window {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Window{
		maxChars: maxTokens * charsPerToken,
		messages: []llm.Message{{Role: "system", Content: systemPrompt}},
	}
}

// Append adds a message, then prunes from the oldest non-system entry
// until the window fits its budget again.
func (w *Window) Append(msg llm.Message) {
	w.messages = append(w.messages, msg)
	for w.totalChars() > w.maxChars && len(w.messages) > 2 {
		w.messages = append(w.messages[:1], w.messages[2:]...)
	}
}

// All returns a copy of the current window in order.
func (w *Window) All() []llm.Message {
	out := make([]llm.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// Len returns the number of entries currently held.
func (w *Window) Len() int {
	return len(w.messages)
}

func (w *Window) totalChars() int {
	total := 0
	for _, m := range w.messages {
		total += len(m.Content)
	}
	return total
}
