// Package kernel defines the types shared by every subsystem capability:
// the error representation, the host print sink, and the small value types
// (Frame, Size) that flow across the registry boundary.
package kernel

import "fmt"

// Error describes a failure raised by a kernel capability. Unlike the
// errors produced by errors.New, an Error carries the module that raised
// it so that a caller dispatching through the registry can tell which
// installed implementation failed without type-asserting on the message.
type Error struct {
	// Module is the name of the capability that raised the error, e.g.
	// "bitmap", "priority", "message_queue".
	Module string

	// Message is a short, human-readable description of the failure.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Module == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Module, e.Message)
}

// NewError constructs an Error for the named module.
func NewError(module, message string) *Error {
	return &Error{Module: module, Message: message}
}

// Sentinel errors shared across capability sets, one per failure kind in
// spec section 7. Capabilities that need a module-qualified error construct
// their own via NewError instead of reusing these directly.
var (
	// ErrCapacityExhausted covers: no free pages/blocks, a full channel,
	// an exhausted channel table, an empty message pool.
	ErrCapacityExhausted = &Error{Message: "capacity exhausted"}

	// ErrInvalidArgument covers: nil descriptor/message, out-of-range
	// priority, zero-size allocation request.
	ErrInvalidArgument = &Error{Message: "invalid argument"}

	// ErrNotFound covers: unknown channel id, unknown registry role or
	// variant name.
	ErrNotFound = &Error{Message: "not found"}

	// ErrPreconditionViolated covers: registering a nil capability set.
	// A double free is a silent no-op and returns no error.
	ErrPreconditionViolated = &Error{Message: "precondition violated"}

	// ErrPolicyDenied covers: a shared-memory send without write
	// permission.
	ErrPolicyDenied = &Error{Message: "policy denied"}
)
