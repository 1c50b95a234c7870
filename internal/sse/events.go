package sse

// Event types published by the wallet service.
const (
	FocusChanged    = "focus.changed"
	FocusReset      = "focus.reset"
	PromptRequested = "prompt.requested"
	PromptCancelled = "prompt.cancelled"
	EdgeCreated     = "edge.created"
	GraphReloaded   = "graph.reloaded"
	GraphUpdated    = "graph.updated"
)

// Dismissal reasons carried by prompt.cancelled.
const (
	ReasonTimeout   = "timeout"
	ReasonShutdown  = "shutdown"
	ReasonCancelled = "cancelled"
	ReasonEmpty     = "empty"
)

// PromptDismissed is the payload of prompt.cancelled.
type PromptDismissed struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// DatasetLoaded is the payload of graph.reloaded.
type DatasetLoaded struct {
	Name  string `json:"name"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

// FocusCleared is the payload of focus.reset sent by an explicit reset.
type FocusCleared struct {
	Selection string `json:"selection"`
}

// GraphChange is the payload of the throttled graph.updated event. Cause is
// the event type that triggered it; Seq is the id of that event.
type GraphChange struct {
	Cause string `json:"cause"`
	Seq   uint64 `json:"seq"`
}
