package p9

import (
	"fmt"

	"github.com/hostfs/virtio9pd/p9proto"
)

// Kind classifies an error returned by the client engine, so the
// scheme adapter can make the not-found-vs-I/O distinction without
// string-matching error text.
type Kind int

const (
	// KindTransport covers descriptor-chain submission failures: the
	// queue itself rejected the request.
	KindTransport Kind = iota
	// KindProtocol covers malformed or undersized responses, size
	// fields inconsistent with what the transport reported, or a
	// response of the wrong type for the operation that was issued.
	KindProtocol
	// KindServer covers a well-formed Rlerror reply.
	KindServer
	// KindWalkIncomplete covers a Twalk that returned fewer Qids than
	// requested components: the walk failed partway, and the fid it
	// would have bound is not valid.
	KindWalkIncomplete
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindServer:
		return "server"
	case KindWalkIncomplete:
		return "walk-incomplete"
	default:
		return "unknown"
	}
}

// Error is the error type every Client method returns on failure. Op
// names the 9P operation being attempted; Errno is only meaningful
// when Kind is KindServer.
type Error struct {
	Op    string
	Kind  Kind
	Errno uint32
	Err   error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("9p %s: server error, errno=%d", e.Op, e.Errno)
	}
	return fmt.Sprintf("9p %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func serverErr(op string, errno uint32) *Error {
	return &Error{Op: op, Kind: KindServer, Errno: errno}
}

func errUnexpectedType(want, got p9proto.MsgType) error {
	return fmt.Errorf("unexpected reply type: want %s, got %s", want, got)
}

func errVersionMismatch(got string) error {
	return fmt.Errorf("server negotiated unsupported version %q", got)
}

func errWalkShort(want, got int) error {
	return fmt.Errorf("walk stopped after %d of %d components", got, want)
}
