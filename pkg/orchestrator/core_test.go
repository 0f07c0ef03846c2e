package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroomhq/warroom/internal/adapters/file"
	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/domain"
	"github.com/warroomhq/warroom/pkg/event"
	"github.com/warroomhq/warroom/pkg/ports"
)

// fakeExecutor scripts collaborator responses per command type.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []ports.Command
	respond  func(ports.Command) (json.RawMessage, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd ports.Command) (json.RawMessage, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(cmd)
	}
	return json.RawMessage(`{}`), nil
}

func newTestCore(t *testing.T, opts ...Option) (*Core, *bus.Bus) {
	t.Helper()
	b := bus.New()
	store := file.New(filepath.Join(t.TempDir(), "sessions"))
	return New(store, b, opts...), b
}

// waitFor receives events until one of type T arrives or the timeout
// expires.
func waitFor[T event.Event](t *testing.T, sub *bus.Subscription) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-sub.C:
			if typed, ok := e.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// expectNone asserts that no event of type T arrives within the window.
func expectNone[T event.Event](t *testing.T, sub *bus.Subscription, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case e := <-sub.C:
			if typed, ok := e.(T); ok {
				t.Fatalf("unexpected event %T: %+v", typed, typed)
			}
		case <-deadline:
			return
		}
	}
}

func TestCore_CreateSessionSetsActive(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	id := core.CreateSession("acme external", domain.ModeOffensive, map[string]string{"scope": "10.0.0.0/24"})
	require.NotEmpty(t, id)
	assert.Equal(t, id, core.ActiveSessionID())

	created := waitFor[event.SessionCreated](t, sub)
	assert.Equal(t, id, created.SessionID)
	assert.Equal(t, "acme external", created.Name)

	snapshot, err := core.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/24", snapshot.Metadata["scope"])

	// A second create swaps the active pointer unconditionally.
	second := core.CreateSession("acme internal", domain.ModeDefensive, nil)
	assert.Equal(t, second, core.ActiveSessionID())
}

func TestCore_SaveLoadRoundTrip(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()
	ctx := context.Background()

	id := core.CreateSession("persisted", domain.ModeOffensive, nil)
	core.QueueTask("nmap", "10.0.0.5", map[string]any{"flags": "-sV"})

	require.NoError(t, core.SaveSession(ctx, id))
	saved := waitFor[event.SessionSaved](t, sub)
	assert.Equal(t, id, saved.SessionID)

	// A fresh core sharing the store hydrates from disk.
	fresh := New(core.store, b)
	require.NoError(t, fresh.LoadSession(ctx, id))
	loaded := waitFor[event.SessionLoaded](t, sub)
	assert.Equal(t, id, loaded.SessionID)
	require.NotNil(t, loaded.State)
	assert.Len(t, loaded.State.TaskQueue, 1)
	assert.Equal(t, id, fresh.ActiveSessionID())
}

func TestCore_SaveNonResidentIsNoOp(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	require.NoError(t, core.SaveSession(context.Background(), "session_ghost"))
	expectNone[event.SessionSaved](t, sub, 50*time.Millisecond)
}

func TestCore_DeleteSessionIdempotent(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()
	ctx := context.Background()

	id := core.CreateSession("doomed", domain.ModeOffensive, nil)
	require.NoError(t, core.SaveSession(ctx, id))

	require.NoError(t, core.DeleteSession(ctx, id))
	assert.Empty(t, core.ActiveSessionID())
	deleted := waitFor[event.SessionDeleted](t, sub)
	assert.Equal(t, id, deleted.SessionID)

	// Again: gone from memory and store, still succeeds.
	require.NoError(t, core.DeleteSession(ctx, id))

	// Never existed anywhere: still succeeds.
	require.NoError(t, core.DeleteSession(ctx, "session_never"))
}

func TestCore_QueueTaskWithoutActiveSession(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	task := core.QueueTask("nmap", "10.0.0.5", nil)
	assert.Nil(t, task)
	expectNone[event.TaskQueued](t, sub, 50*time.Millisecond)
}

func TestCore_TaskLifecycle(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	core.CreateSession("lifecycle", domain.ModeOffensive, nil)
	task := core.QueueTask("gobuster", "https://app.example.com", map[string]any{"wordlist": "common"})
	require.NotNil(t, task)
	queued := waitFor[event.TaskQueued](t, sub)
	assert.Equal(t, task.ID, queued.Task.ID)
	assert.Equal(t, domain.TaskQueued, queued.Task.Status)

	require.NoError(t, core.StartTask(task.ID))
	started := waitFor[event.TaskStarted](t, sub)
	assert.Equal(t, task.ID, started.TaskID)
	assert.False(t, started.StartedAt.IsZero())

	// Running tasks cannot start again.
	assert.ErrorIs(t, core.StartTask(task.ID), domain.ErrInvalidTransition)

	require.NoError(t, core.CompleteTask(task.ID, event.TaskResult{Success: true, Output: "done"}))
	completed := waitFor[event.TaskCompleted](t, sub)
	assert.Equal(t, task.ID, completed.TaskID)
	assert.True(t, completed.Result.Success)

	// Completed is terminal.
	assert.ErrorIs(t, core.FailTask(task.ID, "too late"), domain.ErrInvalidTransition)
}

func TestCore_CancelTask(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	id := core.CreateSession("cancellable", domain.ModeOffensive, nil)
	task := core.QueueTask("sqlmap", "https://app.example.com/login", nil)
	require.NotNil(t, task)

	require.NoError(t, core.CancelTask(task.ID))
	updated := waitFor[event.SessionUpdated](t, sub)
	assert.Equal(t, id, updated.SessionID)
	require.NotNil(t, updated.Delta.TaskUpdated)
	assert.Equal(t, domain.TaskCancelled, updated.Delta.TaskUpdated.Status)
}

func TestCore_ApprovalFlow(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	core.CreateSession("gated", domain.ModeOffensive, nil)

	action := domain.Action{
		ActionType:  domain.ActionToolExecution,
		Description: "run exploit against 10.0.0.5",
		RiskLevel:   domain.RiskHigh,
	}
	approval := core.RequestApproval(action, "exploitation requires sign-off")
	require.NotNil(t, approval)
	required := waitFor[event.ApprovalRequired](t, sub)
	assert.Equal(t, approval.ID, required.Approval.ID)
	assert.Equal(t, domain.ApprovalPending, required.Approval.Status)

	require.NoError(t, core.ResolveApproval(approval.ID, true, nil))
	granted := waitFor[event.ApprovalGranted](t, sub)
	assert.Equal(t, approval.ID, granted.ApprovalID)

	// One-way: a resolved approval stays resolved.
	err := core.ResolveApproval(approval.ID, false, nil)
	assert.ErrorIs(t, err, domain.ErrApprovalResolved)

	reason := "scope does not cover exploitation"
	denied := core.RequestApproval(action, "second attempt")
	require.NotNil(t, denied)
	waitFor[event.ApprovalRequired](t, sub)
	require.NoError(t, core.ResolveApproval(denied.ID, false, &reason))
	deniedEvt := waitFor[event.ApprovalDenied](t, sub)
	assert.Equal(t, denied.ID, deniedEvt.ApprovalID)
	require.NotNil(t, deniedEvt.Reason)
	assert.Equal(t, reason, *deniedEvt.Reason)
}

func TestCore_FindingsAndArtifacts(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	id := core.CreateSession("evidence", domain.ModeOffensive, nil)

	finding := core.AddFinding("exposed admin panel", domain.SeverityHigh, "/admin reachable without auth", "gobuster", nil)
	require.NotNil(t, finding)
	discovered := waitFor[event.FindingDiscovered](t, sub)
	assert.Equal(t, finding.ID, discovered.Finding.ID)
	assert.Equal(t, domain.SeverityHigh, discovered.Finding.Severity)

	artifact := core.AddArtifact(domain.ArtifactScreenshot, "admin-panel.png", "/tmp/admin-panel.png", nil)
	require.NotNil(t, artifact)
	updated := waitFor[event.SessionUpdated](t, sub)
	assert.Equal(t, id, updated.SessionID)
	require.NotNil(t, updated.Delta.ArtifactAdded)
	assert.Equal(t, artifact.ID, updated.Delta.ArtifactAdded.ID)
}

func TestCore_UpdateAgentStatus(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	core.CreateSession("agents", domain.ModeOffensive, nil)

	taskRef := "task_12345678"
	core.UpdateAgentStatus(domain.AgentOperator, "scanning", &taskRef)
	changed := waitFor[event.AgentStatusChanged](t, sub)
	assert.Equal(t, domain.AgentOperator, changed.Agent)
	assert.Equal(t, domain.AgentState("scanning"), changed.Status.State)
	require.NotNil(t, changed.Status.CurrentTask)
	assert.Equal(t, taskRef, *changed.Status.CurrentTask)

	// Unknown agent kinds are dropped without an event.
	core.UpdateAgentStatus("Imaginary", "idle", nil)
	expectNone[event.AgentStatusChanged](t, sub, 50*time.Millisecond)
}

func TestCore_Chat(t *testing.T) {
	exec := &fakeExecutor{respond: func(cmd ports.Command) (json.RawMessage, error) {
		return json.RawMessage(`{"response":"start with a tcp sweep","model":"llama3"}`), nil
	}}
	core, b := newTestCore(t, WithExecutor(exec))
	sub := b.Subscribe()
	defer sub.Cancel()

	text, err := core.Chat(context.Background(), "where should recon start?", nil)
	require.NoError(t, err)
	assert.Equal(t, "start with a tcp sweep", text)

	resp := waitFor[event.ChatResponse](t, sub)
	assert.Equal(t, "start with a tcp sweep", resp.Response)
	assert.Equal(t, "llama3", resp.Model)

	exec.mu.Lock()
	require.Len(t, exec.commands, 1)
	assert.Equal(t, ports.CommandAIGenerate, exec.commands[0].Type)
	exec.mu.Unlock()
}

func TestCore_ChatFailureEmitsNoEvent(t *testing.T) {
	exec := &fakeExecutor{respond: func(cmd ports.Command) (json.RawMessage, error) {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: "model offline"}
	}}
	core, b := newTestCore(t, WithExecutor(exec))
	sub := b.Subscribe()
	defer sub.Cancel()

	_, err := core.Chat(context.Background(), "anyone home?", nil)
	require.Error(t, err)
	expectNone[event.ChatResponse](t, sub, 50*time.Millisecond)
}

func TestCore_ChatMissingResponseIsAFailure(t *testing.T) {
	exec := &fakeExecutor{respond: func(cmd ports.Command) (json.RawMessage, error) {
		return json.RawMessage(`{"model":"llama3"}`), nil
	}}
	core, b := newTestCore(t, WithExecutor(exec))
	sub := b.Subscribe()
	defer sub.Cancel()

	// A data payload without response text is a collaborator failure,
	// not an empty chat turn.
	_, err := core.Chat(context.Background(), "summarize", nil)
	var collabErr *ports.CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, ports.CommandAIGenerate, collabErr.Command)
	expectNone[event.ChatResponse](t, sub, 50*time.Millisecond)
}

func TestCore_ExecuteTask(t *testing.T) {
	exec := &fakeExecutor{respond: func(cmd ports.Command) (json.RawMessage, error) {
		return json.RawMessage(`{"stdout":"80/tcp open"}`), nil
	}}
	core, b := newTestCore(t, WithExecutor(exec))
	sub := b.Subscribe()
	defer sub.Cancel()

	core.CreateSession("executed", domain.ModeOffensive, nil)
	task := core.QueueTask("nmap", "10.0.0.5", map[string]any{"flags": "-p-"})
	require.NotNil(t, task)

	require.NoError(t, core.ExecuteTask(context.Background(), task.ID))

	started := waitFor[event.TaskStarted](t, sub)
	assert.Equal(t, task.ID, started.TaskID)
	completed := waitFor[event.TaskCompleted](t, sub)
	assert.Equal(t, task.ID, completed.TaskID)
	assert.True(t, completed.Result.Success)
	assert.JSONEq(t, `{"stdout":"80/tcp open"}`, string(completed.Result.StructuredData))

	exec.mu.Lock()
	require.Len(t, exec.commands, 1)
	assert.Equal(t, ports.CommandToolExecute, exec.commands[0].Type)
	assert.Equal(t, "nmap", exec.commands[0].Tool)
	assert.Equal(t, "10.0.0.5", exec.commands[0].Target)
	exec.mu.Unlock()
}

func TestCore_ExecuteTaskFailure(t *testing.T) {
	exec := &fakeExecutor{respond: func(cmd ports.Command) (json.RawMessage, error) {
		return nil, &ports.CollaboratorError{Command: cmd.Type, Message: "tool crashed"}
	}}
	core, b := newTestCore(t, WithExecutor(exec))
	sub := b.Subscribe()
	defer sub.Cancel()

	core.CreateSession("failing", domain.ModeOffensive, nil)
	task := core.QueueTask("nuclei", "10.0.0.5", nil)
	require.NotNil(t, task)

	err := core.ExecuteTask(context.Background(), task.ID)
	require.Error(t, err)

	failed := waitFor[event.TaskFailed](t, sub)
	assert.Equal(t, task.ID, failed.TaskID)
	assert.Contains(t, failed.Error, "tool crashed")

	snapshot, err := core.Snapshot(core.ActiveSessionID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskFailed, snapshot.TaskQueue[0].Status)
}

func TestCore_RenameSession(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	id := core.CreateSession("old name", domain.ModeDefensive, nil)
	require.NoError(t, core.RenameSession(id, "new name"))

	updated := waitFor[event.SessionUpdated](t, sub)
	require.NotNil(t, updated.Delta.NameChanged)
	assert.Equal(t, "new name", *updated.Delta.NameChanged)

	assert.ErrorIs(t, core.RenameSession("session_ghost", "x"), domain.ErrSessionNotFound)
}

func TestCore_SetSessionStatus(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()

	id := core.CreateSession("winding down", domain.ModeOffensive, nil)
	require.NoError(t, core.SetSessionStatus(id, domain.SessionCompleted))

	updated := waitFor[event.SessionUpdated](t, sub)
	require.NotNil(t, updated.Delta.StatusChanged)
	assert.Equal(t, domain.SessionCompleted, *updated.Delta.StatusChanged)

	snapshot, err := core.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, snapshot.Status)

	assert.ErrorIs(t, core.SetSessionStatus("session_ghost", domain.SessionPaused), domain.ErrSessionNotFound)
}

func TestCore_ListSessions(t *testing.T) {
	core, b := newTestCore(t)
	sub := b.Subscribe()
	defer sub.Cancel()
	ctx := context.Background()

	a := core.CreateSession("first", domain.ModeOffensive, nil)
	require.NoError(t, core.SaveSession(ctx, a))
	bID := core.CreateSession("second", domain.ModeOffensive, nil)
	require.NoError(t, core.SaveSession(ctx, bID))

	summaries, err := core.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	listed := waitFor[event.SessionList](t, sub)
	assert.Len(t, listed.Sessions, 2)
}

func TestCore_IndependentSessionsRunInParallel(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = core.CreateSession(fmt.Sprintf("parallel-%d", i), domain.ModeOffensive, nil)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, core.RenameSession(id, fmt.Sprintf("%s-%d", id, j)))
			}
			assert.NoError(t, core.SaveSession(ctx, id))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		snapshot, err := core.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, id+"-49", snapshot.Name)
	}
}

func TestCore_SnapshotIsIndependent(t *testing.T) {
	core, _ := newTestCore(t)

	id := core.CreateSession("snapshot", domain.ModeOffensive, nil)
	core.QueueTask("nmap", "10.0.0.5", nil)

	snapshot, err := core.Snapshot(id)
	require.NoError(t, err)
	snapshot.TaskQueue[0].ToolName = "mutated"

	again, err := core.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "nmap", again.TaskQueue[0].ToolName)
}
