package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Initialized(t *testing.T) {
	s := NewSession("recon-1", ModeOffensive)

	assert.NotEmpty(t, s.ID)
	assert.Contains(t, s.ID, "session_")
	assert.Equal(t, "recon-1", s.Name)
	assert.Equal(t, SessionActive, s.Status)
	assert.Equal(t, ModeOffensive, s.Mode)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
	assert.Empty(t, s.TaskQueue)
	assert.Empty(t, s.ApprovalQueue)
	assert.Empty(t, s.Findings)
	assert.Empty(t, s.Artifacts)

	require.Len(t, s.AgentStates, 5)
	for _, kind := range AgentKinds() {
		status, ok := s.AgentStates[kind]
		require.True(t, ok, "missing agent %s", kind)
		assert.Equal(t, kind, status.Agent)
		assert.Equal(t, AgentIdle, status.State)
		assert.Nil(t, status.CurrentTask)
	}
}

func TestNewSession_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := NewSession("s", ModeDefensive)
		require.False(t, seen[s.ID], "duplicate session id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestQueueTask_AppendsAtTail(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	before := s.UpdatedAt
	time.Sleep(time.Millisecond)

	first := s.QueueTask("nmap", "10.0.0.1", map[string]any{"ports": "1-1024"})
	second := s.QueueTask("portscan", "10.0.0.5", nil)

	require.Len(t, s.TaskQueue, 2)
	assert.Equal(t, first.ID, s.TaskQueue[0].ID)
	assert.Equal(t, second.ID, s.TaskQueue[1].ID)
	assert.Equal(t, TaskQueued, second.Status)
	assert.NotNil(t, s.TaskQueue[1].Args)
	assert.True(t, s.UpdatedAt.After(before), "UpdatedAt not bumped")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestTaskTransitions_ForwardOnly(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	task := s.QueueTask("nmap", "10.0.0.1", nil)

	started, err := s.StartTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskRunning, started.Status)
	assert.NotNil(t, started.StartedAt)

	// Cannot start twice.
	_, err = s.StartTask(task.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := s.CompleteTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	// Terminal: no further moves.
	_, err = s.FailTask(task.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.CancelTask(task.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelTask_FromQueuedOrRunning(t *testing.T) {
	s := NewSession("s", ModeOffensive)

	queued := s.QueueTask("nmap", "a", nil)
	cancelled, err := s.CancelTask(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskCancelled, cancelled.Status)

	running := s.QueueTask("nmap", "b", nil)
	_, err = s.StartTask(running.ID)
	require.NoError(t, err)
	_, err = s.CancelTask(running.ID)
	require.NoError(t, err)
}

func TestTaskTransitions_UnknownID(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	_, err := s.StartTask("task_missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestResolveApproval_OneWay(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	approval := s.RequestApproval(Action{
		ActionType:  ActionRootCommand,
		Description: "run as root",
		RiskLevel:   RiskCritical,
	}, "tool requires elevated privileges")

	assert.Equal(t, ApprovalPending, approval.Status)

	resolved, err := s.ResolveApproval(approval.ID, true)
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, resolved.Status)

	// Second resolution is rejected, either way.
	_, err = s.ResolveApproval(approval.ID, true)
	assert.ErrorIs(t, err, ErrApprovalResolved)
	_, err = s.ResolveApproval(approval.ID, false)
	assert.ErrorIs(t, err, ErrApprovalResolved)
}

func TestResolveApproval_Denied(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	approval := s.RequestApproval(Action{ActionType: ActionFileWrite, RiskLevel: RiskLow}, "writes a report")

	resolved, err := s.ResolveApproval(approval.ID, false)
	require.NoError(t, err)
	assert.Equal(t, ApprovalDenied, resolved.Status)
}

func TestUpdateAgent_Unconstrained(t *testing.T) {
	s := NewSession("s", ModeOffensive)

	// Any state is reachable from any other, including error -> idle.
	taskRef := "task_abc"
	status, ok := s.UpdateAgent(AgentOperator, AgentError, &taskRef)
	require.True(t, ok)
	assert.Equal(t, AgentError, status.State)
	require.NotNil(t, status.CurrentTask)
	assert.Equal(t, "task_abc", *status.CurrentTask)

	status, ok = s.UpdateAgent(AgentOperator, AgentIdle, nil)
	require.True(t, ok)
	assert.Equal(t, AgentIdle, status.State)
	assert.Nil(t, status.CurrentTask)

	_, ok = s.UpdateAgent(AgentKind("Ghost"), AgentIdle, nil)
	assert.False(t, ok)
}

func TestAddFinding_AppendOnly(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	before := s.UpdatedAt
	time.Sleep(time.Millisecond)

	f := s.AddFinding("open port", SeverityMedium, "22/tcp open", "nmap", nil)
	assert.Contains(t, f.ID, "finding_")
	require.Len(t, s.Findings, 1)
	assert.True(t, s.UpdatedAt.After(before))
}

func TestClone_Independent(t *testing.T) {
	s := NewSession("s", ModeOffensive)
	s.QueueTask("nmap", "10.0.0.1", map[string]any{"ports": "80"})
	s.Metadata["engagement"] = "acme"

	clone := s.Clone()
	clone.QueueTask("nikto", "10.0.0.2", nil)
	clone.Metadata["engagement"] = "other"
	clone.TaskQueue[0].Args["ports"] = "443"
	_, ok := clone.UpdateAgent(AgentPlanner, AgentPlanning, nil)
	require.True(t, ok)

	assert.Len(t, s.TaskQueue, 1)
	assert.Equal(t, "acme", s.Metadata["engagement"])
	assert.Equal(t, "80", s.TaskQueue[0].Args["ports"])
	assert.Equal(t, AgentIdle, s.AgentStates[AgentPlanner].State)
}

func TestSummarize(t *testing.T) {
	s := NewSession("recon-1", ModeDefensive)
	s.QueueTask("nmap", "10.0.0.1", nil)
	s.AddFinding("f", SeverityInfo, "d", "nmap", nil)
	s.AddFinding("g", SeverityHigh, "d", "nmap", nil)

	sum := s.Summarize()
	assert.Equal(t, s.ID, sum.ID)
	assert.Equal(t, "recon-1", sum.Name)
	assert.Equal(t, ModeDefensive, sum.Mode)
	assert.Equal(t, 1, sum.TaskCount)
	assert.Equal(t, 2, sum.FindingCount)
}

func TestOrdering(t *testing.T) {
	assert.Negative(t, RiskLow.Compare(RiskCritical))
	assert.Positive(t, RiskHigh.Compare(RiskMedium))
	assert.Zero(t, RiskMedium.Compare(RiskMedium))

	assert.Negative(t, SeverityInfo.Compare(SeverityLow))
	assert.Positive(t, SeverityCritical.Compare(SeverityHigh))
}
