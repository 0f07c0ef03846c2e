package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/warroomhq/warroom/pkg/domain"
)

// ErrUnknownType is returned by Decode for a tag this version does not
// know. Transports drop such messages rather than failing the
// connection, so newer clients can speak to older cores.
var ErrUnknownType = errors.New("unknown event type")

// decoders maps each known tag to a blank variant for Decode to fill.
var decoders = map[Type]func() Event{
	TypeSessionCreated:     func() Event { return &SessionCreated{} },
	TypeSessionLoaded:      func() Event { return &SessionLoaded{} },
	TypeSessionUpdated:     func() Event { return &SessionUpdated{} },
	TypeSessionSaved:       func() Event { return &SessionSaved{} },
	TypeSessionDeleted:     func() Event { return &SessionDeleted{} },
	TypeSessionList:        func() Event { return &SessionList{} },
	TypeAgentStatusChanged: func() Event { return &AgentStatusChanged{} },
	TypePlanGenerated:      func() Event { return &PlanGenerated{} },
	TypeTaskQueued:         func() Event { return &TaskQueued{} },
	TypeTaskStarted:        func() Event { return &TaskStarted{} },
	TypeTaskProgress:       func() Event { return &TaskProgress{} },
	TypeTaskCompleted:      func() Event { return &TaskCompleted{} },
	TypeTaskFailed:         func() Event { return &TaskFailed{} },
	TypeApprovalRequired:   func() Event { return &ApprovalRequired{} },
	TypeApprovalGranted:    func() Event { return &ApprovalGranted{} },
	TypeApprovalDenied:     func() Event { return &ApprovalDenied{} },
	TypeFindingDiscovered:  func() Event { return &FindingDiscovered{} },
	TypeLogEntry:           func() Event { return &LogEntry{} },
	TypeSystemHealth:       func() Event { return &SystemHealth{} },
	TypeError:              func() Event { return &Error{} },
	TypeChatResponse:       func() Event { return &ChatResponse{} },
	TypeCreateSession:      func() Event { return &CreateSession{} },
	TypeLoadSession:        func() Event { return &LoadSession{} },
	TypeSaveSession:        func() Event { return &SaveSession{} },
	TypeDeleteSession:      func() Event { return &DeleteSession{} },
	TypeExportSession:      func() Event { return &ExportSession{} },
	TypeQueueTask:          func() Event { return &QueueTask{} },
	TypeApproveAction:      func() Event { return &ApproveAction{} },
	TypeDenyAction:         func() Event { return &DenyAction{} },
	TypeGetSessionList:     func() Event { return &GetSessionList{} },
	TypeGetAgentStatus:     func() Event { return &GetAgentStatus{} },
	TypeUpdateAgentStatus:  func() Event { return &UpdateAgentStatus{} },
	TypeChat:               func() Event { return &Chat{} },
}

// Marshal encodes an event as one internally tagged JSON message:
// the variant's fields plus a "type" tag.
func Marshal(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	tag, _ := json.Marshal(e.EventType())
	fields["type"] = tag

	return json.Marshal(fields)
}

// Decode parses one wire message into its typed variant. It returns
// ErrUnknownType for unrecognized tags and a wrapped domain.ErrDecode
// for malformed payloads.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("%w: missing type tag", domain.ErrDecode)
	}

	mk, ok := decoders[head.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}

	e := mk()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, head.Type, err)
	}
	// Variants travel the bus by value; unwrap the decode target so
	// subscribers can type-switch without caring about pointers.
	return reflect.ValueOf(e).Elem().Interface().(Event), nil
}
