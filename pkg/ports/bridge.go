package ports

import (
	"context"
	"encoding/json"
)

// Command type tags understood by the execution collaborator.
const (
	CommandToolExecute   = "tool_execute"
	CommandAIGenerate    = "ai_generate"
	CommandRobinSearch   = "robin_search"
	CommandBrowserAction = "browser_action"
)

// Command is a tagged request for the external execution collaborator.
type Command struct {
	Type   string          `json:"type"`
	Tool   string          `json:"tool,omitempty"`
	Target string          `json:"target,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
	Prompt string          `json:"prompt,omitempty"`
	Model  *string         `json:"model,omitempty"`
	Query  string          `json:"query,omitempty"`
	Action string          `json:"action,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CollaboratorError is a failure reported by, or while reaching, the
// execution collaborator.
type CollaboratorError struct {
	// Command is the command type that failed.
	Command string
	// Message is the collaborator's error text, or the transport
	// failure description.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *CollaboratorError) Error() string {
	if e.Command == "" {
		return "collaborator: " + e.Message
	}
	return "collaborator: " + e.Command + ": " + e.Message
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Executor is the AI/tool-execution collaborator: a request/response
// endpoint that runs tools, generates text, searches, and drives the
// browser on the core's behalf. Calls may take minutes; every
// implementation must honor ctx and surface transport or timeout
// failures as a CollaboratorError.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (json.RawMessage, error)
}

// InputDriver simulates native user input. Both operations are fire
// and forget: no result, no error reporting beyond delivery. The core
// defines this boundary only; implementations live outside this
// module.
type InputDriver interface {
	TypeText(text string)
	Scroll(amount int)
}
