/*
Package event defines the wire protocol of the warroom bus: a closed
tagged union of events and commands, one JSON message per event.

Every variant carries a snake_case tag in its "type" field
(internally tagged). Outcome events describe state changes observed
on the bus (session_created, task_queued, finding_discovered, ...);
command variants are inbound requests that the dispatch loop executes
(create_session, queue_task, chat, ...). Both travel on the same
stream: a command published by one observer reaches every observer,
including the orchestrator's dispatch loop.

Consumers must tolerate unknown tags: Decode returns ErrUnknownType
for tags this version does not know, and transports drop such
messages instead of failing the connection. This keeps older cores
compatible with newer clients.
*/
package event
