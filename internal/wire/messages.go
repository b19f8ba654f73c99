// Package wire defines the message shapes exchanged between the worker
// pool and its workers. These travel over in-process Go channels rather
// than an actual byte-oriented transport, but their field shapes mirror
// the wire format a cross-process implementation of this runtime would
// use, so a future transport swap changes only the plumbing, not the
// protocol.
package wire

import "encoding/json"

// MessageType tags the kind of a Submission or Reply.
type MessageType string

const (
	TypeExecute               MessageType = "execute"
	TypeRegisterSharedChannel MessageType = "register-shared-channel"
	TypeResult                MessageType = "result"
	TypeError                 MessageType = "error"
)

// Submission is sent from the pool to a worker to run one task.
type Submission struct {
	ID      string         `json:"id"`
	Type    MessageType    `json:"type"` // always TypeExecute
	Payload ExecutePayload `json:"payload"`
}

// ExecutePayload carries the task's stable identifier and encoded
// arguments. Fn is a lookup key into a worker's task registry, never the
// function's source text.
type ExecutePayload struct {
	Fn     string          `json:"fn"`
	Args   json.RawMessage `json:"args"`
	Shared bool            `json:"shared"` // true selects the goShared entry point
}

// Registration is broadcast from the pool to every worker (current and,
// replayed, future) to add a channel to the worker's registry.
type Registration struct {
	Type         MessageType `json:"type"` // always TypeRegisterSharedChannel
	ChannelID    string      `json:"channelId"`
	SharedBuffer any         `json:"sharedBuffer"` // in-process channel handle
}

// Reply is sent from a worker back to the pool once a Submission has run
// to completion, successfully or not.
type Reply struct {
	ID      string          `json:"id"`
	Type    MessageType     `json:"type"` // TypeResult or TypeError
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Stack   string          `json:"stack,omitempty"`
}
