package event

import (
	"github.com/warroomhq/warroom/pkg/domain"
)

// Commands are published by observers and executed by the dispatch
// loop. They share the stream with outcome events.

type CreateSession struct {
	Name     string            `json:"name"`
	Mode     domain.Mode       `json:"mode"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type LoadSession struct {
	SessionID string `json:"session_id"`
}

type SaveSession struct {
	SessionID string `json:"session_id"`
}

type DeleteSession struct {
	SessionID string `json:"session_id"`
}

type ExportSession struct {
	SessionID string `json:"session_id"`
}

type QueueTask struct {
	ToolName string         `json:"tool_name"`
	Target   string         `json:"target"`
	Args     map[string]any `json:"args,omitempty"`
}

type ApproveAction struct {
	ApprovalID string `json:"approval_id"`
}

type DenyAction struct {
	ApprovalID string  `json:"approval_id"`
	Reason     *string `json:"reason,omitempty"`
}

type GetSessionList struct{}

type GetAgentStatus struct {
	Agent domain.AgentKind `json:"agent"`
}

type UpdateAgentStatus struct {
	Agent       domain.AgentKind  `json:"agent"`
	State       domain.AgentState `json:"state"`
	CurrentTask *string           `json:"current_task,omitempty"`
}

type Chat struct {
	Message string  `json:"message"`
	Model   *string `json:"model,omitempty"`
}

func (CreateSession) EventType() Type     { return TypeCreateSession }
func (LoadSession) EventType() Type       { return TypeLoadSession }
func (SaveSession) EventType() Type       { return TypeSaveSession }
func (DeleteSession) EventType() Type     { return TypeDeleteSession }
func (ExportSession) EventType() Type     { return TypeExportSession }
func (QueueTask) EventType() Type         { return TypeQueueTask }
func (ApproveAction) EventType() Type     { return TypeApproveAction }
func (DenyAction) EventType() Type        { return TypeDenyAction }
func (GetSessionList) EventType() Type    { return TypeGetSessionList }
func (GetAgentStatus) EventType() Type    { return TypeGetAgentStatus }
func (UpdateAgentStatus) EventType() Type { return TypeUpdateAgentStatus }
func (Chat) EventType() Type              { return TypeChat }
