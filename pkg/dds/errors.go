// Package dds is the public-facing API: a thin, entity-lifecycle layer
// over internal/rtps/participant's actor, shaped the way OMG DDS 1.4
// shapes DomainParticipantFactory/DomainParticipant/Topic/Publisher/
// Subscriber/DataWriter/DataReader (§6).
package dds

import "fmt"

// ReturnCode is the DDS error taxonomy (§7). Every public operation that
// can fail returns one, wrapped in a *Error, except read/take which
// surface "no data" as an empty result rather than an error.
type ReturnCode int

const (
	// OK is never actually constructed; operations that succeed return
	// a nil error instead.
	OK ReturnCode = iota
	NotEnabled
	BadParameter
	PreconditionNotMet
	OutOfResources
	ImmutablePolicy
	InconsistentPolicy
	Timeout
	IllegalOperation
	AlreadyDeleted
	ErrorCode
)

func (c ReturnCode) String() string {
	switch c {
	case NotEnabled:
		return "NotEnabled"
	case BadParameter:
		return "BadParameter"
	case PreconditionNotMet:
		return "PreconditionNotMet"
	case OutOfResources:
		return "OutOfResources"
	case ImmutablePolicy:
		return "ImmutablePolicy"
	case InconsistentPolicy:
		return "InconsistentPolicy"
	case Timeout:
		return "Timeout"
	case IllegalOperation:
		return "IllegalOperation"
	case AlreadyDeleted:
		return "AlreadyDeleted"
	case ErrorCode:
		return "Error"
	default:
		return "OK"
	}
}

// Error is the concrete error type every dds operation returns. Code
// selects which of §7's kinds occurred; Message carries the residual
// detail that Error(string) names.
type Error struct {
	Code    ReturnCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ReturnCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
