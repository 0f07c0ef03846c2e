package domain

// Mode is the operational mode of a session. It is fixed at creation.
type Mode string

const (
	ModeOffensive Mode = "OFFENSIVE"
	ModeDefensive Mode = "DEFENSIVE"
)

// SessionStatus is the lifecycle status of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// AgentKind identifies one of the five known agents.
type AgentKind string

const (
	AgentPlanner   AgentKind = "Planner"
	AgentOperator  AgentKind = "Operator"
	AgentNavigator AgentKind = "Navigator"
	AgentAnalyst   AgentKind = "Analyst"
	AgentScribe    AgentKind = "Scribe"
)

// AgentKinds lists every known agent kind. A session always holds
// exactly one AgentStatus per entry.
func AgentKinds() []AgentKind {
	return []AgentKind{AgentPlanner, AgentOperator, AgentNavigator, AgentAnalyst, AgentScribe}
}

// AgentState is the reported state of an agent. It is a label: any
// value is reachable from any other.
type AgentState string

const (
	AgentIdle            AgentState = "idle"
	AgentPlanning        AgentState = "planning"
	AgentExecuting       AgentState = "executing"
	AgentAnalyzing       AgentState = "analyzing"
	AgentWriting         AgentState = "writing"
	AgentWaitingApproval AgentState = "waitingapproval"
	AgentError           AgentState = "error"
)

// TaskStatus is the execution status of a queued task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// ActionType categorizes an action requiring approval.
type ActionType string

const (
	ActionToolExecution     ActionType = "tool_execution"
	ActionBrowserNavigation ActionType = "browser_navigation"
	ActionFormSubmission    ActionType = "form_submission"
	ActionFileWrite         ActionType = "file_write"
	ActionRootCommand       ActionType = "root_command"
)

// RiskLevel orders the risk of an action, ascending.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Compare returns a negative, zero, or positive value ordering r
// against other, ascending by risk.
func (r RiskLevel) Compare(other RiskLevel) int {
	return riskOrder[r] - riskOrder[other]
}

// ApprovalStatus is the resolution state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// Severity orders the impact of a finding, ascending.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Compare returns a negative, zero, or positive value ordering s
// against other, ascending by severity.
func (s Severity) Compare(other Severity) int {
	return severityOrder[s] - severityOrder[other]
}

// ArtifactType categorizes a produced artifact.
type ArtifactType string

const (
	ArtifactReport     ArtifactType = "report"
	ArtifactScreenshot ArtifactType = "screenshot"
	ArtifactLog        ArtifactType = "log"
	ArtifactData       ArtifactType = "data"
	ArtifactOther      ArtifactType = "other"
)
