package slab

import "fmt"

// ErrKind classifies pool errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindNotFound      ErrKind = iota // slice not owned by any live chunk
	ErrKindUnaligned                    // address is not on a slice boundary
	ErrKindRecycled                     // slice already free (double free)
	ErrKindResourceLimit                // backing heap could not supply a block
	ErrKindArgument                     // invalid request (e.g., zero size)
	ErrKindState                        // invalid operation for current state
	ErrKindUnknown                      // internal invariant violation
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not-found"
	case ErrKindUnaligned:
		return "unaligned"
	case ErrKindRecycled:
		return "recycled"
	case ErrKindResourceLimit:
		return "resource-limit"
	case ErrKindArgument:
		return "argument"
	case ErrKindState:
		return "state"
	case ErrKindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return "slab: " + e.Msg + ": " + e.Err.Error()
	}
	return "slab: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRecycled)
// holds for detailed errors built on top of a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels returned by the pool. A nil error is the OK outcome.
var (
	// ErrNotFound indicates the slice does not belong to any chunk of the pool.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "slice not owned by pool"}
	// ErrUnaligned indicates the slice does not start on a slice boundary.
	ErrUnaligned = &Error{Kind: ErrKindUnaligned, Msg: "slice not aligned to a slice boundary"}
	// ErrRecycled indicates the slice was already returned to the pool.
	ErrRecycled = &Error{Kind: ErrKindRecycled, Msg: "slice already recycled"}
	// ErrResourceLimit indicates the backing heap failed to supply a block.
	ErrResourceLimit = &Error{Kind: ErrKindResourceLimit, Msg: "backing heap exhausted"}
	// ErrInvalidSize indicates a zero or negative allocation size.
	ErrInvalidSize = &Error{Kind: ErrKindArgument, Msg: "invalid allocation size"}
	// ErrInUse indicates Destroy was called while slices are still checked out.
	ErrInUse = &Error{Kind: ErrKindState, Msg: "pool has slices in use"}
	// ErrCorrupt indicates an internal inconsistency found by Validate.
	ErrCorrupt = &Error{Kind: ErrKindUnknown, Msg: "corrupt pool state"}
)

func corruptf(format string, args ...any) error {
	return &Error{Kind: ErrKindUnknown, Msg: "corrupt pool state: " + fmt.Sprintf(format, args...)}
}

func resourceLimit(size int, err error) error {
	return &Error{
		Kind: ErrKindResourceLimit,
		Msg:  fmt.Sprintf("backing heap refused %d bytes", size),
		Err:  err,
	}
}
