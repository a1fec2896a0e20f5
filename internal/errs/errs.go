// Package errs implements the error taxonomy of spec §7 as a typed
// value with a numeric Kind and a human-readable Reason, following the
// shape of the teacher's pkg/wire error type (Error{Code, Reason},
// NewError constructor, Error()/IsRetryable() methods) — generalized
// from a single flat code space to the taxonomy's Category/Kind pair
// so callers can switch on Category without a giant code enum.
package errs

import "fmt"

// Category is the top-level taxonomy bucket from spec §7.
type Category int

const (
	CategoryIo Category = iota
	CategoryValidation
	CategoryProtocol
	CategoryInternal
	CategoryCancelled
)

func (c Category) String() string {
	switch c {
	case CategoryIo:
		return "io"
	case CategoryValidation:
		return "validation"
	case CategoryProtocol:
		return "protocol"
	case CategoryInternal:
		return "internal"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Kind identifies a specific error within its Category.
type Kind int

const (
	// Io
	IoFileNotFound Kind = iota
	IoPermission
	IoCorrupt

	// Validation
	ValidationInvalidConfiguration
	ValidationMissingField

	// Protocol (transient — retried)
	ProtocolNetworkOffline
	ProtocolTimeout
	ProtocolInvalidPacket
	ProtocolInvalidResponse

	// Protocol (fatal to session)
	ProtocolAuthenticationFailed
	ProtocolBanned
	ProtocolIllegalInput

	// Protocol (other server reply codes; not fatal to session)
	ProtocolServerError

	// Internal
	InternalAssertion
	InternalHashCalculation

	// Cancelled
	Cancelled
)

var categories = map[Kind]Category{
	IoFileNotFound: CategoryIo,
	IoPermission:   CategoryIo,
	IoCorrupt:      CategoryIo,

	ValidationInvalidConfiguration: CategoryValidation,
	ValidationMissingField:        CategoryValidation,

	ProtocolNetworkOffline:  CategoryProtocol,
	ProtocolTimeout:         CategoryProtocol,
	ProtocolInvalidPacket:   CategoryProtocol,
	ProtocolInvalidResponse: CategoryProtocol,

	ProtocolAuthenticationFailed: CategoryProtocol,
	ProtocolBanned:               CategoryProtocol,
	ProtocolIllegalInput:         CategoryProtocol,
	ProtocolServerError:          CategoryProtocol,

	InternalAssertion:       CategoryInternal,
	InternalHashCalculation: CategoryInternal,

	Cancelled: CategoryCancelled,
}

// transientKinds retry with backoff by default (spec §7); the rest
// either surface immediately or are fatal to the session.
var transientKinds = map[Kind]bool{
	ProtocolNetworkOffline:  true,
	ProtocolTimeout:         true,
	ProtocolInvalidPacket:   true,
	ProtocolInvalidResponse: true,
}

// fatalToSessionKinds clear the session and surface per spec §7.
var fatalToSessionKinds = map[Kind]bool{
	ProtocolAuthenticationFailed: true,
	ProtocolBanned:               true,
	ProtocolIllegalInput:         true,
}

// Error is the typed error value threaded through every subsystem.
type Error struct {
	Kind     Kind
	Reason   string
	Code     int // protocol response code, when Kind == ProtocolServerError
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category(), e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Category(), e.Reason)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Category returns the taxonomy bucket for this error's Kind.
func (e *Error) Category() Category { return categories[e.Kind] }

// Transient reports whether this error should be retried with backoff.
func (e *Error) Transient() bool { return transientKinds[e.Kind] }

// FatalToSession reports whether this error must clear the current
// session and be surfaced without local retry.
func (e *Error) FatalToSession() bool { return fatalToSessionKinds[e.Kind] }

// New creates an Error of the given kind with a fixed reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf creates an Error of the given kind with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Wrapped: cause}
}

// ServerError creates a Protocol(ServerError{code}) error (spec §4.8/§7).
func ServerError(code int, reason string) *Error {
	return &Error{Kind: ProtocolServerError, Reason: reason, Code: code}
}

// CancelledErr is the sentinel Cancelled error: cooperative cancellation,
// no state mutation (spec §5/§7).
var CancelledErr = New(Cancelled, "operation cancelled")

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
