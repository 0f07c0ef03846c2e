package event

import (
	"encoding/json"
	"time"

	"github.com/warroomhq/warroom/pkg/domain"
)

// Type tags a wire message variant.
type Type string

// Outcome event tags.
const (
	TypeSessionCreated     Type = "session_created"
	TypeSessionLoaded      Type = "session_loaded"
	TypeSessionUpdated     Type = "session_updated"
	TypeSessionSaved       Type = "session_saved"
	TypeSessionDeleted     Type = "session_deleted"
	TypeSessionList        Type = "session_list"
	TypeAgentStatusChanged Type = "agent_status_changed"
	TypePlanGenerated      Type = "plan_generated"
	TypeTaskQueued         Type = "task_queued"
	TypeTaskStarted        Type = "task_started"
	TypeTaskProgress       Type = "task_progress"
	TypeTaskCompleted      Type = "task_completed"
	TypeTaskFailed         Type = "task_failed"
	TypeApprovalRequired   Type = "approval_required"
	TypeApprovalGranted    Type = "approval_granted"
	TypeApprovalDenied     Type = "approval_denied"
	TypeFindingDiscovered  Type = "finding_discovered"
	TypeLogEntry           Type = "log_entry"
	TypeSystemHealth       Type = "system_health"
	TypeError              Type = "error"
	TypeChatResponse       Type = "chat_response"
)

// Command tags.
const (
	TypeCreateSession     Type = "create_session"
	TypeLoadSession       Type = "load_session"
	TypeSaveSession       Type = "save_session"
	TypeDeleteSession     Type = "delete_session"
	TypeExportSession     Type = "export_session"
	TypeQueueTask         Type = "queue_task"
	TypeApproveAction     Type = "approve_action"
	TypeDenyAction        Type = "deny_action"
	TypeGetSessionList    Type = "get_session_list"
	TypeGetAgentStatus    Type = "get_agent_status"
	TypeUpdateAgentStatus Type = "update_agent_status"
	TypeChat              Type = "chat"
)

// Event is one wire message: an outcome event or a command.
type Event interface {
	EventType() Type
}

// SessionDelta carries an incremental session change. Only the fields
// relevant to the change are set.
type SessionDelta struct {
	TaskAdded       *domain.Task            `json:"task_added,omitempty"`
	TaskUpdated     *domain.Task            `json:"task_updated,omitempty"`
	ApprovalAdded   *domain.ApprovalRequest `json:"approval_added,omitempty"`
	ApprovalUpdated *domain.ApprovalRequest `json:"approval_updated,omitempty"`
	FindingAdded    *domain.Finding         `json:"finding_added,omitempty"`
	ArtifactAdded   *domain.Artifact        `json:"artifact_added,omitempty"`
	StatusChanged   *domain.SessionStatus   `json:"status_changed,omitempty"`
	NameChanged     *string                 `json:"name_changed,omitempty"`
}

// ScanRequest is one planned tool invocation proposed by the planner.
type ScanRequest struct {
	ToolName  string          `json:"tool_name"`
	Target    string          `json:"target"`
	Args      json.RawMessage `json:"args,omitempty"`
	Reasoning *string         `json:"reasoning,omitempty"`
}

// TaskResult is the outcome of an executed task.
type TaskResult struct {
	Success        bool            `json:"success"`
	Output         string          `json:"output"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	DurationMS     uint64          `json:"duration_ms"`
}

// LogLevel orders log entry severity.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Session events.

type SessionCreated struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// SessionLoaded carries the full state so a freshly connecting
// observer can hydrate from this one event.
type SessionLoaded struct {
	SessionID string          `json:"session_id"`
	State     *domain.Session `json:"state"`
}

type SessionUpdated struct {
	SessionID string       `json:"session_id"`
	Delta     SessionDelta `json:"delta"`
}

type SessionSaved struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionDeleted struct {
	SessionID string `json:"session_id"`
}

type SessionList struct {
	Sessions []domain.Summary `json:"sessions"`
}

// Agent events.

type AgentStatusChanged struct {
	Agent  domain.AgentKind   `json:"agent"`
	Status domain.AgentStatus `json:"status"`
}

type PlanGenerated struct {
	Plan []ScanRequest `json:"plan"`
}

// Task events.

type TaskQueued struct {
	Task domain.Task `json:"task"`
}

type TaskStarted struct {
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
}

type TaskProgress struct {
	TaskID   string  `json:"task_id"`
	Progress float64 `json:"progress"`
	Message  *string `json:"message,omitempty"`
}

type TaskCompleted struct {
	TaskID string     `json:"task_id"`
	Result TaskResult `json:"result"`
}

type TaskFailed struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// Approval events.

type ApprovalRequired struct {
	Approval domain.ApprovalRequest `json:"approval"`
}

type ApprovalGranted struct {
	ApprovalID string    `json:"approval_id"`
	GrantedAt  time.Time `json:"granted_at"`
}

type ApprovalDenied struct {
	ApprovalID string    `json:"approval_id"`
	DeniedAt   time.Time `json:"denied_at"`
	Reason     *string   `json:"reason,omitempty"`
}

// Finding events.

type FindingDiscovered struct {
	Finding domain.Finding `json:"finding"`
}

// System events.

type LogEntry struct {
	Level     LogLevel          `json:"level"`
	Agent     *domain.AgentKind `json:"agent,omitempty"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
}

type SystemHealth struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	Timestamp time.Time `json:"timestamp"`
}

type Error struct {
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

func (SessionCreated) EventType() Type     { return TypeSessionCreated }
func (SessionLoaded) EventType() Type      { return TypeSessionLoaded }
func (SessionUpdated) EventType() Type     { return TypeSessionUpdated }
func (SessionSaved) EventType() Type       { return TypeSessionSaved }
func (SessionDeleted) EventType() Type     { return TypeSessionDeleted }
func (SessionList) EventType() Type        { return TypeSessionList }
func (AgentStatusChanged) EventType() Type { return TypeAgentStatusChanged }
func (PlanGenerated) EventType() Type      { return TypePlanGenerated }
func (TaskQueued) EventType() Type         { return TypeTaskQueued }
func (TaskStarted) EventType() Type        { return TypeTaskStarted }
func (TaskProgress) EventType() Type       { return TypeTaskProgress }
func (TaskCompleted) EventType() Type      { return TypeTaskCompleted }
func (TaskFailed) EventType() Type         { return TypeTaskFailed }
func (ApprovalRequired) EventType() Type   { return TypeApprovalRequired }
func (ApprovalGranted) EventType() Type    { return TypeApprovalGranted }
func (ApprovalDenied) EventType() Type     { return TypeApprovalDenied }
func (FindingDiscovered) EventType() Type  { return TypeFindingDiscovered }
func (LogEntry) EventType() Type           { return TypeLogEntry }
func (SystemHealth) EventType() Type       { return TypeSystemHealth }
func (Error) EventType() Type              { return TypeError }
func (ChatResponse) EventType() Type       { return TypeChatResponse }

// NewLogEntry builds a timestamped log event.
func NewLogEntry(level LogLevel, message string, agent *domain.AgentKind) LogEntry {
	return LogEntry{
		Level:     level,
		Agent:     agent,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewError builds an error event.
func NewError(message string, details *string) Error {
	return Error{Message: message, Details: details}
}
