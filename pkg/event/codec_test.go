package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroomhq/warroom/pkg/domain"
)

func TestMarshal_InternallyTagged(t *testing.T) {
	data, err := Marshal(SessionCreated{SessionID: "session_abc", Name: "recon-1"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "session_created", raw["type"])
	assert.Equal(t, "session_abc", raw["session_id"])
	assert.Equal(t, "recon-1", raw["name"])
}

func TestDecode_RoundTrip(t *testing.T) {
	s := domain.NewSession("recon-1", domain.ModeOffensive)
	task := s.QueueTask("portscan", "10.0.0.5", map[string]any{"ports": "1-1024"})

	data, err := Marshal(TaskQueued{Task: task})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	queued, ok := decoded.(TaskQueued)
	require.True(t, ok, "decoded to %T", decoded)
	assert.Equal(t, task.ID, queued.Task.ID)
	assert.Equal(t, "portscan", queued.Task.ToolName)
	assert.Equal(t, domain.TaskQueued, queued.Task.Status)
}

func TestDecode_Command(t *testing.T) {
	data := []byte(`{"type":"queue_task","tool_name":"nmap","target":"10.0.0.1","args":{"flags":"-sV"}}`)

	decoded, err := Decode(data)
	require.NoError(t, err)

	cmd, ok := decoded.(QueueTask)
	require.True(t, ok, "decoded to %T", decoded)
	assert.Equal(t, "nmap", cmd.ToolName)
	assert.Equal(t, "10.0.0.1", cmd.Target)
	assert.Equal(t, "-sV", cmd.Args["flags"])
}

func TestDecode_CreateSessionMode(t *testing.T) {
	data := []byte(`{"type":"create_session","name":"recon-1","mode":"OFFENSIVE"}`)

	decoded, err := Decode(data)
	require.NoError(t, err)

	cmd := decoded.(CreateSession)
	assert.Equal(t, domain.ModeOffensive, cmd.Mode)
}

func TestDecode_UnknownTagIgnorable(t *testing.T) {
	_, err := Decode([]byte(`{"type":"quantum_entangle","qubits":3}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = Decode([]byte(`{"payload":"no tag"}`))
	assert.ErrorIs(t, err, domain.ErrDecode)

	// Known tag, wrong field shapes.
	_, err = Decode([]byte(`{"type":"queue_task","tool_name":42}`))
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestMarshal_EmptyVariant(t *testing.T) {
	data, err := Marshal(GetSessionList{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"get_session_list"}`, string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	_, ok := decoded.(GetSessionList)
	assert.True(t, ok)
}

func TestRoundTrip_AllVariantsKeepTag(t *testing.T) {
	variants := []Event{
		SessionCreated{},
		SessionLoaded{},
		SessionUpdated{},
		SessionSaved{},
		SessionDeleted{},
		SessionList{},
		AgentStatusChanged{},
		PlanGenerated{},
		TaskQueued{},
		TaskStarted{},
		TaskProgress{},
		TaskCompleted{},
		TaskFailed{},
		ApprovalRequired{},
		ApprovalGranted{},
		ApprovalDenied{},
		FindingDiscovered{},
		LogEntry{},
		SystemHealth{},
		Error{},
		ChatResponse{},
		CreateSession{},
		LoadSession{},
		SaveSession{},
		DeleteSession{},
		ExportSession{},
		QueueTask{},
		ApproveAction{},
		DenyAction{},
		GetSessionList{},
		GetAgentStatus{},
		UpdateAgentStatus{},
		Chat{},
	}

	for _, v := range variants {
		data, err := Marshal(v)
		require.NoError(t, err, "marshal %s", v.EventType())

		decoded, err := Decode(data)
		require.NoError(t, err, "decode %s", v.EventType())
		assert.Equal(t, v.EventType(), decoded.EventType())
	}
}
