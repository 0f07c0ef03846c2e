package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in
// a store or in the registry.
var ErrSessionNotFound = errors.New("session not found")

// ErrDecode is returned when persisted or wire data cannot be decoded.
// Adapters wrap it with detail via fmt.Errorf and %w.
var ErrDecode = errors.New("decode error")

// ErrTaskNotFound is returned when a task ID is absent from a session.
var ErrTaskNotFound = errors.New("task not found")

// ErrApprovalNotFound is returned when an approval ID is absent from a
// session.
var ErrApprovalNotFound = errors.New("approval not found")

// ErrApprovalResolved is returned when an already approved or denied
// request is resolved again. The pending -> approved/denied transition
// is one-way.
var ErrApprovalResolved = errors.New("approval already resolved")

// ErrInvalidTransition is returned when a task status change would move
// backwards. Task status only moves forward.
var ErrInvalidTransition = errors.New("invalid task transition")
