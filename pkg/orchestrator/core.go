// Package orchestrator coordinates sessions: an in-memory registry
// with an active-session pointer, persistence through a
// ports.SessionStore, and outcome events published on the bus.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/domain"
	"github.com/warroomhq/warroom/pkg/event"
	"github.com/warroomhq/warroom/pkg/ports"
)

// handle owns one resident session. All reads and mutations of the
// session go through its mutex, so operations on different sessions
// never contend.
type handle struct {
	mu      sync.Mutex
	session *domain.Session
}

// Core is the session coordinator.
type Core struct {
	mu       sync.RWMutex
	sessions map[string]*handle

	activeMu sync.RWMutex
	activeID string

	store ports.SessionStore
	exec  ports.Executor
	bus   *bus.Bus
	log   *slog.Logger

	onAutosave func()
}

type Option func(*Core)

// WithExecutor wires the execution collaborator. Without it, Chat and
// ExecuteTask fail with a configuration error.
func WithExecutor(exec ports.Executor) Option {
	return func(c *Core) {
		c.exec = exec
	}
}

// WithLogger sets the core's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Core) {
		if log != nil {
			c.log = log
		}
	}
}

// WithAutosaveHook installs a callback invoked after each successful
// autosave, used for metrics.
func WithAutosaveHook(fn func()) Option {
	return func(c *Core) {
		c.onAutosave = fn
	}
}

// New creates a Core over the given store and bus.
func New(store ports.SessionStore, b *bus.Bus, opts ...Option) *Core {
	c := &Core{
		sessions: make(map[string]*handle),
		store:    store,
		bus:      b,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Core) publish(e event.Event) {
	c.bus.Publish(e)
}

func (c *Core) handleByID(id string) *handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[id]
}

// activeHandle resolves the active pointer to a resident handle. The
// read and the lookup are deliberately not atomic against a
// concurrent delete; a vanished session reads as "no active session".
func (c *Core) activeHandle() (string, *handle) {
	c.activeMu.RLock()
	id := c.activeID
	c.activeMu.RUnlock()
	if id == "" {
		return "", nil
	}
	return id, c.handleByID(id)
}

// ActiveSessionID returns the current active session ID, or "" when
// none is active.
func (c *Core) ActiveSessionID() string {
	c.activeMu.RLock()
	defer c.activeMu.RUnlock()
	return c.activeID
}

// Snapshot returns an independent copy of a resident session.
func (c *Core) Snapshot(id string) (*domain.Session, error) {
	h := c.handleByID(id)
	if h == nil {
		return nil, domain.ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Clone(), nil
}

// CreateSession registers a new session, makes it active, and returns
// its ID.
func (c *Core) CreateSession(name string, mode domain.Mode, metadata map[string]string) string {
	session := domain.NewSession(name, mode)
	for k, v := range metadata {
		session.Metadata[k] = v
	}

	c.mu.Lock()
	c.sessions[session.ID] = &handle{session: session}
	c.mu.Unlock()

	c.setActive(session.ID)

	c.log.Info("session created", "session_id", session.ID, "name", name, "mode", mode)
	c.publish(event.SessionCreated{SessionID: session.ID, Name: name})
	return session.ID
}

func (c *Core) setActive(id string) {
	c.activeMu.Lock()
	c.activeID = id
	c.activeMu.Unlock()
}

// DeleteSession removes the session from memory and from the store.
// The whole operation is idempotent: a session absent from memory,
// the store, or both still deletes cleanly.
func (c *Core) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()

	c.activeMu.Lock()
	if c.activeID == id {
		c.activeID = ""
	}
	c.activeMu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	c.log.Info("session deleted", "session_id", id)
	c.publish(event.SessionDeleted{SessionID: id})
	return nil
}

// LoadSession loads a session from the store into memory and makes it
// active. A resident session with the same ID is overwritten.
func (c *Core) LoadSession(ctx context.Context, id string) error {
	session, err := c.store.Load(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessions[id] = &handle{session: session}
	c.mu.Unlock()

	c.setActive(id)

	c.log.Info("session loaded", "session_id", id, "name", session.Name)
	c.publish(event.SessionLoaded{SessionID: id, State: session.Clone()})
	return nil
}

// SaveSession persists a resident session. Saving a session that is
// not in memory is a silent no-op.
func (c *Core) SaveSession(ctx context.Context, id string) error {
	h := c.handleByID(id)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	snapshot := h.session.Clone()
	h.mu.Unlock()

	if _, err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}

	c.publish(event.SessionSaved{SessionID: id, Timestamp: time.Now().UTC()})
	return nil
}

// ExportSession saves the session and writes a timestamped export,
// returning the export path.
func (c *Core) ExportSession(ctx context.Context, id string) (string, error) {
	if err := c.SaveSession(ctx, id); err != nil {
		return "", err
	}
	path, err := c.store.ExportAuto(ctx, id)
	if err != nil {
		return "", err
	}
	c.log.Info("session exported", "session_id", id, "path", path)
	return path, nil
}

// ListSessions reads stored session summaries and emits them as a
// SessionList event.
func (c *Core) ListSessions(ctx context.Context) ([]domain.Summary, error) {
	summaries, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	c.publish(event.SessionList{Sessions: summaries})
	return summaries, nil
}

// RenameSession renames a resident session.
func (c *Core) RenameSession(id, name string) error {
	h := c.handleByID(id)
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	h.session.Rename(name)
	h.mu.Unlock()

	c.publish(event.SessionUpdated{
		SessionID: id,
		Delta:     event.SessionDelta{NameChanged: &name},
	})
	return nil
}

// SetSessionStatus changes a resident session's lifecycle status.
func (c *Core) SetSessionStatus(id string, status domain.SessionStatus) error {
	h := c.handleByID(id)
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	h.session.SetStatus(status)
	h.mu.Unlock()

	c.publish(event.SessionUpdated{
		SessionID: id,
		Delta:     event.SessionDelta{StatusChanged: &status},
	})
	return nil
}

// QueueTask appends a task to the active session. Without an active
// session it is a no-op returning nil.
func (c *Core) QueueTask(toolName, target string, args map[string]any) *domain.Task {
	_, h := c.activeHandle()
	if h == nil {
		c.log.Debug("queue task ignored, no active session", "tool", toolName)
		return nil
	}

	h.mu.Lock()
	task := h.session.QueueTask(toolName, target, args)
	h.mu.Unlock()

	c.publish(event.TaskQueued{Task: task})
	return &task
}

// StartTask transitions a queued task to running on the active session.
func (c *Core) StartTask(taskID string) error {
	_, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	task, err := h.session.StartTask(taskID)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	c.publish(event.TaskStarted{TaskID: taskID, StartedAt: *task.StartedAt})
	return nil
}

// CompleteTask transitions a running task to completed.
func (c *Core) CompleteTask(taskID string, result event.TaskResult) error {
	_, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	_, err := h.session.CompleteTask(taskID)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	c.publish(event.TaskCompleted{TaskID: taskID, Result: result})
	return nil
}

// FailTask transitions a running task to failed.
func (c *Core) FailTask(taskID, reason string) error {
	_, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	_, err := h.session.FailTask(taskID)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	c.publish(event.TaskFailed{TaskID: taskID, Error: reason})
	return nil
}

// CancelTask cancels a queued or running task.
func (c *Core) CancelTask(taskID string) error {
	id, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	task, err := h.session.CancelTask(taskID)
	var cancelled domain.Task
	if err == nil {
		cancelled = *task
	}
	h.mu.Unlock()
	if err != nil {
		return err
	}

	c.publish(event.SessionUpdated{
		SessionID: id,
		Delta:     event.SessionDelta{TaskUpdated: &cancelled},
	})
	return nil
}

// ExecuteTask runs a queued task through the execution collaborator,
// driving the start/complete/fail transitions and their events.
func (c *Core) ExecuteTask(ctx context.Context, taskID string) error {
	if c.exec == nil {
		return fmt.Errorf("no executor configured")
	}

	_, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	task := h.session.Task(taskID)
	if task == nil {
		h.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	toolName, target := task.ToolName, task.Target
	args, err := json.Marshal(task.Args)
	h.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal task args: %w", err)
	}

	if err := c.StartTask(taskID); err != nil {
		return err
	}

	started := time.Now()
	data, err := c.exec.Execute(ctx, ports.Command{
		Type:   ports.CommandToolExecute,
		Tool:   toolName,
		Target: target,
		Args:   args,
	})
	elapsed := time.Since(started)

	if err != nil {
		c.log.Warn("task execution failed", "task_id", taskID, "tool", toolName, "err", err)
		if failErr := c.FailTask(taskID, err.Error()); failErr != nil {
			return failErr
		}
		return err
	}

	return c.CompleteTask(taskID, event.TaskResult{
		Success:        true,
		Output:         string(data),
		StructuredData: data,
		DurationMS:     uint64(elapsed.Milliseconds()),
	})
}

// RequestApproval records a pending approval on the active session.
// Without an active session it is a no-op returning nil.
func (c *Core) RequestApproval(action domain.Action, reason string) *domain.ApprovalRequest {
	_, h := c.activeHandle()
	if h == nil {
		return nil
	}

	h.mu.Lock()
	approval := h.session.RequestApproval(action, reason)
	h.mu.Unlock()

	c.publish(event.ApprovalRequired{Approval: approval})
	return &approval
}

// ResolveApproval grants or denies a pending approval on the active
// session. Resolving twice fails with ErrApprovalResolved.
func (c *Core) ResolveApproval(approvalID string, approve bool, reason *string) error {
	_, h := c.activeHandle()
	if h == nil {
		return domain.ErrSessionNotFound
	}

	h.mu.Lock()
	approval, err := h.session.ResolveApproval(approvalID, approve)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	if approve {
		c.publish(event.ApprovalGranted{ApprovalID: approvalID, GrantedAt: *approval.ResolvedAt})
	} else {
		c.publish(event.ApprovalDenied{ApprovalID: approvalID, DeniedAt: *approval.ResolvedAt, Reason: reason})
	}
	return nil
}

// AddFinding records a finding on the active session. Without an
// active session it is a no-op returning nil.
func (c *Core) AddFinding(title string, severity domain.Severity, description, toolSource string, details json.RawMessage) *domain.Finding {
	_, h := c.activeHandle()
	if h == nil {
		return nil
	}

	h.mu.Lock()
	finding := h.session.AddFinding(title, severity, description, toolSource, details)
	h.mu.Unlock()

	c.publish(event.FindingDiscovered{Finding: finding})
	return &finding
}

// AddArtifact records an artifact on the active session. Without an
// active session it is a no-op returning nil.
func (c *Core) AddArtifact(artifactType domain.ArtifactType, name, path string, metadata map[string]string) *domain.Artifact {
	id, h := c.activeHandle()
	if h == nil {
		return nil
	}

	h.mu.Lock()
	artifact := h.session.AddArtifact(artifactType, name, path, metadata)
	h.mu.Unlock()

	c.publish(event.SessionUpdated{
		SessionID: id,
		Delta:     event.SessionDelta{ArtifactAdded: &artifact},
	})
	return &artifact
}

// UpdateAgentStatus updates one agent's state on the active session.
// Unknown agent kinds and missing active sessions are no-ops.
func (c *Core) UpdateAgentStatus(agent domain.AgentKind, state domain.AgentState, currentTask *string) {
	_, h := c.activeHandle()
	if h == nil {
		return
	}

	h.mu.Lock()
	status, ok := h.session.UpdateAgent(agent, state, currentTask)
	h.mu.Unlock()
	if !ok {
		c.log.Debug("agent status update ignored, unknown agent", "agent", agent)
		return
	}

	c.publish(event.AgentStatusChanged{Agent: agent, Status: status})
}

// AgentStatus reads one agent's status from the active session and
// re-emits it as an AgentStatusChanged event.
func (c *Core) AgentStatus(agent domain.AgentKind) (*domain.AgentStatus, error) {
	_, h := c.activeHandle()
	if h == nil {
		return nil, domain.ErrSessionNotFound
	}

	h.mu.Lock()
	status, ok := h.session.AgentStates[agent]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown agent kind %q", agent)
	}

	c.publish(event.AgentStatusChanged{Agent: agent, Status: status})
	return &status, nil
}

// Chat forwards a message to the collaborator's model and emits the
// response. On failure the error propagates and no event is emitted.
func (c *Core) Chat(ctx context.Context, message string, model *string) (string, error) {
	if c.exec == nil {
		return "", fmt.Errorf("no executor configured")
	}

	data, err := c.exec.Execute(ctx, ports.Command{
		Type:   ports.CommandAIGenerate,
		Prompt: message,
		Model:  model,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Response string `json:"response"`
		Model    string `json:"model"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &ports.CollaboratorError{Command: ports.CommandAIGenerate, Message: "malformed data payload", Err: err}
	}
	if payload.Response == "" {
		return "", &ports.CollaboratorError{Command: ports.CommandAIGenerate, Message: "missing response in data payload"}
	}

	usedModel := payload.Model
	if usedModel == "" && model != nil {
		usedModel = *model
	}
	c.publish(event.ChatResponse{Response: payload.Response, Model: usedModel})
	return payload.Response, nil
}
