// Package errs implements the engine's error-kind taxonomy. Every error
// surfaced by the core diff/patch packages (rollinghash, checkdigest,
// blockindex, differ, container, applier) carries one of these kinds so that
// a caller can distinguish malformed input from an internal inconsistency or
// a resource failure without string-matching error text.
package errs

// Kind categorizes why an operation failed. It does not replace the
// underlying error value — it's attached to one via New/Wrap.
type Kind int

const (
	// Input indicates malformed external input: bad magic, unsupported
	// version, a truncated instruction, an unknown opcode, or a COPY that
	// names bytes past the end of the source.
	Input Kind = iota
	// Integrity indicates input that is well-formed but internally
	// inconsistent: a source-size or source-digest mismatch, or an output
	// byte count that disagrees with the header's target size.
	Integrity
	// Usage indicates API misuse by the caller: adding target chunks before
	// the source is finalized, omitting a mandatory call, or flushing
	// before a container has been started.
	Usage
	// Resource indicates a failure in an allocation or a host-supplied byte
	// store's I/O, bubbled up from underneath the core.
	Resource
)

// String names the kind for log and error output.
func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Integrity:
		return "integrity"
	case Usage:
		return "usage"
	case Resource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is a categorized, single-cause error. Propagation policy per the
// engine's error handling design: every Error is fatal to the operation that
// produced it, surfaced verbatim to the caller, with at most one level of
// wrapped cause — deeper context belongs in logs, not in the error chain.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

// New constructs an Error with no wrapped cause.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs an Error wrapping a single underlying cause.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// Error implements the error interface, producing a single categorized
// message: kind plus one-line detail, with the cause appended if present.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String() + ": " + e.Detail
	}
	return e.Kind.String() + ": " + e.Detail + ": " + e.Cause.Error()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Named failure-mode constructors, one per taxonomy entry in spec.md §7 and
// §4.6. Each is a thin Kind-tagged constructor so call sites read as the
// failure-mode name rather than a raw New(Input, "...") call.

func BadMagic() *Error {
	return New(Input, "bad magic")
}

func UnsupportedVersion(version byte) *Error {
	return New(Input, "unsupported version")
}

func TruncatedInstruction() *Error {
	return New(Input, "truncated instruction")
}

func UnknownOpcode(opcode byte) *Error {
	return New(Input, "unknown opcode")
}

func CopyOutOfRange() *Error {
	return New(Input, "copy out of range")
}

func SourceSizeMismatch() *Error {
	return New(Integrity, "source size mismatch")
}

func SourceDigestMismatch() *Error {
	return New(Integrity, "source digest mismatch")
}

func LengthMismatch() *Error {
	return New(Integrity, "length mismatch")
}

func Misuse(detail string) *Error {
	return New(Usage, detail)
}

func ResourceFailure(detail string, cause error) *Error {
	return Wrap(Resource, detail, cause)
}
