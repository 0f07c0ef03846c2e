package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a queued tool invocation against a target. Tasks are
// appended to the tail of the session queue and never reordered.
type Task struct {
	ID          string         `json:"id"`
	ToolName    string         `json:"tool_name"`
	Target      string         `json:"target"`
	Args        map[string]any `json:"args"`
	Status      TaskStatus     `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Action describes what an approval request would allow to happen.
type Action struct {
	ActionType  ActionType      `json:"action_type"`
	Description string          `json:"description"`
	RiskLevel   RiskLevel       `json:"risk_level"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// ApprovalRequest is a human-in-the-loop gate on an Action.
type ApprovalRequest struct {
	ID         string         `json:"id"`
	Action     Action         `json:"action"`
	Reason     string         `json:"reason"`
	CreatedAt  time.Time      `json:"created_at"`
	Status     ApprovalStatus `json:"status"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// AgentStatus reports the current state of one agent.
type AgentStatus struct {
	Agent       AgentKind  `json:"agent"`
	State       AgentState `json:"state"`
	CurrentTask *string    `json:"current_task,omitempty"`
	LastUpdate  time.Time  `json:"last_update"`
}

// Finding is a discovered result worth recording, independent of the
// task that produced it.
type Finding struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Severity     Severity        `json:"severity"`
	Description  string          `json:"description"`
	ToolSource   string          `json:"tool_source"`
	DiscoveredAt time.Time       `json:"discovered_at"`
	Details      json.RawMessage `json:"details,omitempty"`
}

// Artifact is a file produced during the session.
type Artifact struct {
	ID           string            `json:"id"`
	ArtifactType ArtifactType      `json:"artifact_type"`
	Name         string            `json:"name"`
	Path         string            `json:"path"`
	CreatedAt    time.Time         `json:"created_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Session is one unit of orchestrated work. It is owned exclusively by
// the orchestrator while live; stores hold snapshots of it at rest.
type Session struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Status        SessionStatus             `json:"status"`
	Mode          Mode                      `json:"mode"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	TaskQueue     []Task                    `json:"task_queue"`
	ApprovalQueue []ApprovalRequest         `json:"approval_queue"`
	AgentStates   map[AgentKind]AgentStatus `json:"agent_states"`
	Findings      []Finding                 `json:"findings"`
	Artifacts     []Artifact                `json:"artifacts"`
	Metadata      map[string]string         `json:"metadata"`
}

// NewSession creates a fully initialized session: a fresh unique ID,
// all five agents present and idle, empty queues, status active, and
// CreatedAt == UpdatedAt == now.
func NewSession(name string, mode Mode) *Session {
	now := time.Now().UTC()

	agents := make(map[AgentKind]AgentStatus, len(AgentKinds()))
	for _, kind := range AgentKinds() {
		agents[kind] = AgentStatus{
			Agent:      kind,
			State:      AgentIdle,
			LastUpdate: now,
		}
	}

	return &Session{
		ID:            newID("session", 12),
		Name:          name,
		Status:        SessionActive,
		Mode:          mode,
		CreatedAt:     now,
		UpdatedAt:     now,
		TaskQueue:     []Task{},
		ApprovalQueue: []ApprovalRequest{},
		AgentStates:   agents,
		Findings:      []Finding{},
		Artifacts:     []Artifact{},
		Metadata:      map[string]string{},
	}
}

// Touch bumps UpdatedAt. Every mutating helper calls it.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// QueueTask appends a new queued task to the tail of the queue and
// returns it.
func (s *Session) QueueTask(toolName, target string, args map[string]any) Task {
	if args == nil {
		args = map[string]any{}
	}
	task := Task{
		ID:        newID("task", 8),
		ToolName:  toolName,
		Target:    target,
		Args:      args,
		Status:    TaskQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.TaskQueue = append(s.TaskQueue, task)
	s.Touch()
	return task
}

// Task returns a pointer to the task with the given ID, or nil.
func (s *Session) Task(id string) *Task {
	for i := range s.TaskQueue {
		if s.TaskQueue[i].ID == id {
			return &s.TaskQueue[i]
		}
	}
	return nil
}

// StartTask moves a queued task to running and stamps StartedAt.
func (s *Session) StartTask(id string) (*Task, error) {
	return s.transitionTask(id, TaskQueued, TaskRunning)
}

// CompleteTask moves a running task to completed and stamps
// CompletedAt.
func (s *Session) CompleteTask(id string) (*Task, error) {
	return s.transitionTask(id, TaskRunning, TaskCompleted)
}

// FailTask moves a running task to failed and stamps CompletedAt.
func (s *Session) FailTask(id string) (*Task, error) {
	return s.transitionTask(id, TaskRunning, TaskFailed)
}

// CancelTask cancels a task that has not finished yet. Both queued and
// running tasks may be cancelled.
func (s *Session) CancelTask(id string) (*Task, error) {
	task := s.Task(id)
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != TaskQueued && task.Status != TaskRunning {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, TaskCancelled)
	}
	now := time.Now().UTC()
	task.Status = TaskCancelled
	task.CompletedAt = &now
	s.Touch()
	return task, nil
}

func (s *Session) transitionTask(id string, from, to TaskStatus) (*Task, error) {
	task := s.Task(id)
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}
	now := time.Now().UTC()
	task.Status = to
	switch to {
	case TaskRunning:
		task.StartedAt = &now
	case TaskCompleted, TaskFailed:
		task.CompletedAt = &now
	}
	s.Touch()
	return task, nil
}

// RequestApproval appends a pending approval request for the given
// action and returns it.
func (s *Session) RequestApproval(action Action, reason string) ApprovalRequest {
	approval := ApprovalRequest{
		ID:        newID("approval", 8),
		Action:    action,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
		Status:    ApprovalPending,
	}
	s.ApprovalQueue = append(s.ApprovalQueue, approval)
	s.Touch()
	return approval
}

// Approval returns a pointer to the approval with the given ID, or nil.
func (s *Session) Approval(id string) *ApprovalRequest {
	for i := range s.ApprovalQueue {
		if s.ApprovalQueue[i].ID == id {
			return &s.ApprovalQueue[i]
		}
	}
	return nil
}

// ResolveApproval transitions a pending approval to approved or
// denied. The transition is one-way: resolving a request twice returns
// ErrApprovalResolved.
func (s *Session) ResolveApproval(id string, approve bool) (*ApprovalRequest, error) {
	approval := s.Approval(id)
	if approval == nil {
		return nil, ErrApprovalNotFound
	}
	if approval.Status != ApprovalPending {
		return nil, ErrApprovalResolved
	}
	if approve {
		approval.Status = ApprovalApproved
	} else {
		approval.Status = ApprovalDenied
	}
	now := time.Now().UTC()
	approval.ResolvedAt = &now
	s.Touch()
	return approval, nil
}

// AddFinding appends a finding and returns it.
func (s *Session) AddFinding(title string, severity Severity, description, toolSource string, details json.RawMessage) Finding {
	finding := Finding{
		ID:           newID("finding", 8),
		Title:        title,
		Severity:     severity,
		Description:  description,
		ToolSource:   toolSource,
		DiscoveredAt: time.Now().UTC(),
		Details:      details,
	}
	s.Findings = append(s.Findings, finding)
	s.Touch()
	return finding
}

// AddArtifact appends an artifact and returns it.
func (s *Session) AddArtifact(artifactType ArtifactType, name, path string, metadata map[string]string) Artifact {
	if metadata == nil {
		metadata = map[string]string{}
	}
	artifact := Artifact{
		ID:           newID("artifact", 8),
		ArtifactType: artifactType,
		Name:         name,
		Path:         path,
		CreatedAt:    time.Now().UTC(),
		Metadata:     metadata,
	}
	s.Artifacts = append(s.Artifacts, artifact)
	s.Touch()
	return artifact
}

// UpdateAgent replaces the status of the given agent kind, stamping
// LastUpdate. It reports whether the kind was known to the session.
// Any state value is accepted: agent state is a label, not a state
// machine.
func (s *Session) UpdateAgent(kind AgentKind, state AgentState, currentTask *string) (AgentStatus, bool) {
	status, ok := s.AgentStates[kind]
	if !ok {
		return AgentStatus{}, false
	}
	status.State = state
	status.CurrentTask = currentTask
	status.LastUpdate = time.Now().UTC()
	s.AgentStates[kind] = status
	s.Touch()
	return status, true
}

// Rename changes the session name.
func (s *Session) Rename(name string) {
	s.Name = name
	s.Touch()
}

// SetStatus changes the session lifecycle status.
func (s *Session) SetStatus(status SessionStatus) {
	s.Status = status
	s.Touch()
}

// Clone returns a deep copy of the session, safe to hand to another
// goroutine or serialize while the original keeps mutating.
func (s *Session) Clone() *Session {
	out := *s

	out.TaskQueue = make([]Task, len(s.TaskQueue))
	for i, t := range s.TaskQueue {
		t.Args = cloneMap(t.Args)
		out.TaskQueue[i] = t
	}

	out.ApprovalQueue = append([]ApprovalRequest(nil), s.ApprovalQueue...)
	out.Findings = append([]Finding(nil), s.Findings...)

	out.Artifacts = make([]Artifact, len(s.Artifacts))
	for i, a := range s.Artifacts {
		a.Metadata = cloneStringMap(a.Metadata)
		out.Artifacts[i] = a
	}

	out.AgentStates = make(map[AgentKind]AgentStatus, len(s.AgentStates))
	for k, v := range s.AgentStates {
		out.AgentStates[k] = v
	}
	out.Metadata = cloneStringMap(s.Metadata)

	return &out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// newID builds an opaque identifier like "session_3fa85f64aa12":
// a prefix plus the first n hex characters of a fresh UUID.
func newID(prefix string, n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s", prefix, raw[:n])
}

// Summary is the decode-light listing view of a stored session.
type Summary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       SessionStatus `json:"status"`
	Mode         Mode          `json:"mode"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	TaskCount    int           `json:"task_count"`
	FindingCount int           `json:"finding_count"`
}

// Summarize produces the listing view of the session.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:           s.ID,
		Name:         s.Name,
		Status:       s.Status,
		Mode:         s.Mode,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		TaskCount:    len(s.TaskQueue),
		FindingCount: len(s.Findings),
	}
}
