// Package mcp exposes the session coordinator to MCP clients, so
// agent frontends can drive sessions through tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/warroomhq/warroom"
	"github.com/warroomhq/warroom/internal/presentation/tui"
	"github.com/warroomhq/warroom/pkg/domain"
	"github.com/warroomhq/warroom/pkg/orchestrator"
)

// Server wraps the orchestrator core and exposes it as an MCP server.
type Server struct {
	core      *orchestrator.Core
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server over the given core.
func NewServer(core *orchestrator.Core) *Server {
	s := &Server{
		core:      core,
		mcpServer: server.NewMCPServer("warroom", warroom.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// TOOL: create_session
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new engagement session and make it active."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Human-readable session name")),
		mcp.WithString("mode", mcp.Description("Session mode: OFFENSIVE (default) or DEFENSIVE")),
	), s.handleCreateSession)

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all stored sessions, newest first."),
	), s.handleListSessions)

	// TOOL: queue_task
	s.mcpServer.AddTool(mcp.NewTool("queue_task",
		mcp.WithDescription("Queue a tool invocation on the active session."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Tool name, e.g. nmap")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target host, URL, or CIDR")),
		mcp.WithString("args", mcp.Description("JSON object of tool arguments (optional)")),
	), s.handleQueueTask)

	// TOOL: resolve_approval
	s.mcpServer.AddTool(mcp.NewTool("resolve_approval",
		mcp.WithDescription("Approve or deny a pending approval on the active session."),
		mcp.WithString("approval_id", mcp.Required(), mcp.Description("The approval request ID")),
		mcp.WithBoolean("approve", mcp.Required(), mcp.Description("true to grant, false to deny")),
		mcp.WithString("reason", mcp.Description("Denial reason (optional)")),
	), s.handleResolveApproval)

	// TOOL: session_report
	s.mcpServer.AddTool(mcp.NewTool("session_report",
		mcp.WithDescription("Render the Markdown engagement report for a session."),
		mcp.WithString("session_id", mcp.Description("Session ID; defaults to the active session")),
	), s.handleSessionReport)
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := domain.ModeOffensive
	if m := request.GetString("mode", ""); m != "" {
		switch domain.Mode(m) {
		case domain.ModeOffensive, domain.ModeDefensive:
			mode = domain.Mode(m)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", m)), nil
		}
	}

	id := s.core.CreateSession(name, mode, nil)
	return mcp.NewToolResultText(fmt.Sprintf(`{"session_id":%q}`, id)), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.core.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleQueueTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool, err := request.RequireString("tool")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args map[string]any
	if raw := request.GetString("args", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("args is not a JSON object: %v", err)), nil
		}
	}

	task := s.core.QueueTask(tool, target, args)
	if task == nil {
		return mcp.NewToolResultError("no active session; create or load one first"), nil
	}
	data, _ := json.Marshal(task)
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleResolveApproval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	approvalID, err := request.RequireString("approval_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	approve, err := request.RequireBool("approve")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var reason *string
	if r := request.GetString("reason", ""); r != "" {
		reason = &r
	}

	if err := s.core.ResolveApproval(approvalID, approve, reason); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}
	verdict := "denied"
	if approve {
		verdict = "granted"
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"approval_id":%q,"status":%q}`, approvalID, verdict)), nil
}

func (s *Server) handleSessionReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if id == "" {
		id = s.core.ActiveSessionID()
	}
	if id == "" {
		return mcp.NewToolResultError("no session specified and none active"), nil
	}

	session, err := s.core.Snapshot(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return mcp.NewToolResultText(tui.Report(session)), nil
}
