package protocol

import "errors"

// Class buckets a wire error for propagation policy decisions. Structural
// and integrity errors are recoverable on the resynchronizing receive path
// and fatal inside a blocking ack wait; protocol and transport errors are
// always fatal to the call in progress.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassStructural
	ClassIntegrity
	ClassProtocol
	ClassTransport
)

func (c Class) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassIntegrity:
		return "integrity"
	case ClassProtocol:
		return "protocol"
	case ClassTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classifier is implemented by every typed wire error.
type Classifier interface {
	error
	Class() Class
}

// ClassOf reports the class of err, unwrapping as needed. Errors outside
// the wire taxonomy (including nil) report ClassUnknown; callers treating
// an opaque byte-source failure as transport-class should do so at the
// call site where the transport boundary is known.
func ClassOf(err error) Class {
	var c Classifier
	if errors.As(err, &c) {
		return c.Class()
	}
	return ClassUnknown
}
