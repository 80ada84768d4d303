package agent

import (
	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/toolcall"
)

// Status classifies the outcome of one agent cycle.
type Status string

const (
	// StatusSuccess means the model produced a terminal text answer.
	StatusSuccess Status = "success"
	// StatusToolRequested means the model wants one or more tools run.
	StatusToolRequested Status = "tool_requested"
	// StatusFailed means the gateway could not produce a response.
	StatusFailed Status = "failed"
	// StatusUnknown means the response had neither text nor tool calls.
	StatusUnknown Status = "unknown"
)

// CycleResult is the classified outcome of Agent.Cycle.
type CycleResult struct {
	Status    Status
	Response  string          // terminal answer, set for StatusSuccess
	ToolCalls []toolcall.Call // requested invocations, set for StatusToolRequested
	Raw       *llm.Response   // original payload, kept for StatusUnknown diagnosis
}
