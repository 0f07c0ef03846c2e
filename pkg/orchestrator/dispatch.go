package orchestrator

import (
	"context"
	"time"

	"github.com/warroomhq/warroom/pkg/bus"
	"github.com/warroomhq/warroom/pkg/event"
)

// DefaultAutosaveInterval is how often the active session is persisted
// when autosave is enabled.
const DefaultAutosaveInterval = 5 * time.Minute

// Dispatch attaches to the bus and starts the command loop in the
// background, running until ctx is cancelled. The subscription is
// live before Dispatch returns, so a command published immediately
// after is never missed.
func (c *Core) Dispatch(ctx context.Context) {
	sub := c.bus.Subscribe()
	go c.run(ctx, sub)
}

// run executes command events against the core. Every failure is
// caught here, logged, and the loop continues.
func (c *Core) run(ctx context.Context, sub *bus.Subscription) {
	defer sub.Cancel()

	c.log.Info("dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("dispatch loop stopped")
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			c.dispatchOne(ctx, e)
		}
	}
}

func (c *Core) dispatchOne(ctx context.Context, e event.Event) {
	var err error

	switch cmd := e.(type) {
	case event.CreateSession:
		c.CreateSession(cmd.Name, cmd.Mode, cmd.Metadata)
	case event.LoadSession:
		err = c.LoadSession(ctx, cmd.SessionID)
	case event.SaveSession:
		err = c.SaveSession(ctx, cmd.SessionID)
	case event.DeleteSession:
		err = c.DeleteSession(ctx, cmd.SessionID)
	case event.ExportSession:
		_, err = c.ExportSession(ctx, cmd.SessionID)
	case event.GetSessionList:
		_, err = c.ListSessions(ctx)
	case event.QueueTask:
		c.QueueTask(cmd.ToolName, cmd.Target, cmd.Args)
	case event.ApproveAction:
		err = c.ResolveApproval(cmd.ApprovalID, true, nil)
	case event.DenyAction:
		err = c.ResolveApproval(cmd.ApprovalID, false, cmd.Reason)
	case event.UpdateAgentStatus:
		c.UpdateAgentStatus(cmd.Agent, cmd.State, cmd.CurrentTask)
	case event.GetAgentStatus:
		_, err = c.AgentStatus(cmd.Agent)
	case event.Chat:
		// Collaborator calls can take minutes; never stall the loop.
		go func() {
			if _, chatErr := c.Chat(ctx, cmd.Message, cmd.Model); chatErr != nil {
				c.commandFailed(event.TypeChat, chatErr)
			}
		}()
	default:
		// Outcome events share the stream; nothing to do.
		return
	}

	if err != nil {
		c.commandFailed(e.EventType(), err)
	}
}

// commandFailed records a failed command. Failures stay in the log;
// the error wire variant is for external publishers, and chat in
// particular emits nothing on failure.
func (c *Core) commandFailed(t event.Type, err error) {
	c.log.Error("command failed", "command", string(t), "err", err)
}

// Autosave periodically saves the active session until ctx is
// cancelled. A non-positive interval disables it. Failures are logged
// and retried on the next tick.
func (c *Core) Autosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		c.log.Info("autosave disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info("autosave started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id := c.ActiveSessionID()
			if id == "" {
				continue
			}
			if err := c.SaveSession(ctx, id); err != nil {
				c.log.Warn("autosave failed", "session_id", id, "err", err)
				continue
			}
			if c.onAutosave != nil {
				c.onAutosave()
			}
			c.log.Debug("autosave complete", "session_id", id)
		}
	}
}
