// Package errs collects the sentinel errors objectwire surfaces to callers.
//
// Every error a Writer or Reader raises itself is one of the kinds below
// (wrapped with fmt.Errorf("...: %w", ...) where it adds detail), so
// callers can branch with errors.Is instead of parsing message text (spec.md
// §7). Errors from a compression codec, a custom serializer or a user hook
// are returned as they come.
package errs

import "errors"

var (
	// ErrEndOfStream indicates the input was exhausted mid-value.
	ErrEndOfStream = errors.New("objectwire: end of stream")

	// ErrMalformedTag indicates a tag byte outside the allowed range for
	// the current field context.
	ErrMalformedTag = errors.New("objectwire: malformed tag")

	// ErrUnresolvedHandle indicates a HANDLE or COPYHANDLE referenced a
	// stream position that was never registered.
	ErrUnresolvedHandle = errors.New("objectwire: unresolved handle")

	// ErrUnknownClass indicates the class-name registry could not resolve
	// a class code read from the stream.
	ErrUnknownClass = errors.New("objectwire: unknown class code")

	// ErrInstantiationFailed indicates neither a custom instantiator nor
	// the default zero-value constructor could produce an instance.
	ErrInstantiationFailed = errors.New("objectwire: instantiation failed")

	// ErrIllegalFieldAccess indicates the class reflector rejected a
	// field set or get, usually because the field is unexported and has
	// no accessor.
	ErrIllegalFieldAccess = errors.New("objectwire: illegal field access")

	// ErrPredictionTableFull indicates a field descriptor's possible-class
	// table already holds format.MaxPredictionCodes (223) entries; the
	// writer falls back to OBJECT
	// instead of returning this to the caller, but it is exposed for
	// diagnostics.
	ErrPredictionTableFull = errors.New("objectwire: prediction table full")

	// ErrNilTarget indicates ReadObject was asked to decode into a nil or
	// non-pointer target.
	ErrNilTarget = errors.New("objectwire: read target must be a non-nil pointer")

	// ErrTextTooLong indicates a string exceeded the encodable length for
	// its wire form.
	ErrTextTooLong = errors.New("objectwire: text exceeds maximum encodable length")

	// ErrQueueClosed indicates an operation was attempted on a queue.Queue
	// after Close.
	ErrQueueClosed = errors.New("objectwire: queue closed")

	// ErrUnsupportedPrimitive indicates a concrete type with no registered
	// fields (string excepted) could not be written or read as a bare
	// primitive value.
	ErrUnsupportedPrimitive = errors.New("objectwire: unsupported primitive type")
)
