/*
Package domain contains the core data model for a warroom session.

It defines the fundamental entities of an automation session (the
Session itself, its Task queue, ApprovalRequests, per-agent statuses,
Findings and Artifacts) together with their pure mutation helpers.
This package is kept free of I/O and persistence concerns, following
Hexagonal Architecture principles.

# Key Entities

  - Session: One unit of orchestrated work with its own task, approval
    and finding history.
  - Task: A queued tool invocation against a target. Status only moves
    forward (queued -> running -> completed/failed/cancelled).
  - ApprovalRequest: A human-in-the-loop gate on a risky Action. The
    pending -> approved/denied transition is terminal and one-way.
  - AgentStatus: The current state of one of the five known agents.
    Agent state is a label, not a state machine: any value is
    reachable from any other.
  - Finding / Artifact: Append-only records of discovered results and
    produced files.

Every mutating helper bumps the session's UpdatedAt timestamp.
*/
package domain
