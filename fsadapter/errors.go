package fsadapter

import (
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/hostfs/virtio9pd/p9"
)

// Kind classifies an error surfaced at the scheme boundary. Bad-handle
// and operation-misuse cases get distinct codes so the scheme layer
// can report the right errno; an incomplete walk from the 9P layer
// below becomes KindNotFound, and every other failure from that layer
// is folded to a single I/O error, per the error-fidelity-loss
// decision recorded in DESIGN.md.
type Kind int

const (
	// KindBadHandle means the caller's handle_id is not present in the
	// table, or names a handle that is not in the Opened state for an
	// operation (read, write, getdents, fsync) that requires it.
	KindBadHandle Kind = iota
	// KindIsDirectory means an operation that rejects directories (read,
	// write) was called on a directory handle.
	KindIsDirectory
	// KindNotDirectory means getdents was called on a non-directory.
	KindNotDirectory
	// KindBadAccess means a read or write was attempted through a
	// handle whose access mode forbids it.
	KindBadAccess
	// KindNotFound means a walk returned fewer QIDs than requested
	// components. The adapter never attaches (the caller does so before
	// New), so attach failures never reach this type.
	KindNotFound
	// KindIOError covers every protocol, transport, and server-declared
	// failure from package p9: the adapter does not preserve the
	// distinction (or the errno) across this boundary.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindBadHandle:
		return "bad-handle"
	case KindIsDirectory:
		return "is-directory"
	case KindNotDirectory:
		return "not-directory"
	case KindBadAccess:
		return "bad-access"
	case KindNotFound:
		return "not-found"
	case KindIOError:
		return "io-error"
	default:
		return "unknown"
	}
}

// Error is the error type every adapter method returns on failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func badHandle(op string) error {
	return &Error{Op: op, Kind: KindBadHandle}
}

func isDirectory(op string) error {
	return &Error{Op: op, Kind: KindIsDirectory}
}

func notDirectory(op string) error {
	return &Error{Op: op, Kind: KindNotDirectory}
}

func badAccess(op string) error {
	return &Error{Op: op, Kind: KindBadAccess}
}

func notFound(op string, cause error) error {
	return &Error{Op: op, Kind: KindNotFound, Err: cause}
}

// ioError folds any package-p9 failure (transport, protocol, or a
// server-declared Rerror alike) into a single I/O error, wrapping with
// errors.Wrap so the underlying diagnostic survives in the error
// chain for logging even though the scheme boundary collapses it to
// one kind.
func ioError(op string, cause error) error {
	return &Error{Op: op, Kind: KindIOError, Err: errors.Wrap(cause, op)}
}

// classify folds an error coming out of package p9 into the adapter's
// own taxonomy: a walk-incomplete error becomes KindNotFound, anything
// else becomes KindIOError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *p9.Error
	if stderrors.As(err, &pe) && pe.Kind == p9.KindWalkIncomplete {
		return notFound(op, err)
	}
	return ioError(op, err)
}
