// Package warroom is the multi-agent session coordinator: a shared
// event stream, an in-memory session registry, and durable session
// persistence behind one binary.
package warroom

// Version is the current release version.
const Version = "0.1.0"
