// Package toolcall extracts tool invocation requests from model output.
//
// Most backends report tool calls through the structured tool_calls field,
// but some occasionally emit them as plain text in an XML-ish tag syntax.
// This package is the defensive parsing layer that rescues those.
package toolcall

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Call is a single request from the model to invoke a named tool.
// Arguments carries the raw, unparsed payload; it is expected to
// deserialize into a JSON object but is validated downstream.
type Call struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Textual tool-call shapes observed in the wild, in priority order.
var (
	// <function=tool_name>{json_args}</function>
	inlineNamePattern = regexp.MustCompile(`(?s)<function=(\w+)\s*>\s*(\{.*?\})\s*</function>`)
	// <function>tool_name</function>{json_args}
	taggedNamePattern = regexp.MustCompile(`(?s)<function>(\w+)</function>\s*(\{.*?\})`)
	// <function=tool_name {json_args}> with no closing tag
	openTagPattern = regexp.MustCompile(`(?s)<function=(\w+)\s+(\{.*?\})\s*>`)
)

// Extract scans free text for an inline tool call. Patterns are tried in
// priority order and the first match wins. Ordinary text, angle brackets
// included, yields nil: the content is then a final answer, not a call.
func Extract(text string) []Call {
	for _, pattern := range []*regexp.Regexp{inlineNamePattern, taggedNamePattern, openTagPattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return []Call{{
			ID:        NewID(),
			Name:      strings.TrimSpace(m[1]),
			Arguments: strings.TrimSpace(m[2]),
		}}
	}
	return nil
}

// NewID returns a fresh synthetic tool-call id.
func NewID() string {
	return "call_" + uuid.NewString()[:8]
}
