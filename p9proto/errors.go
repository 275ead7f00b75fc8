package p9proto

import "strconv"

type parseError string

func (e parseError) Error() string { return string(e) }

// Parse errors. The decoder never panics on malformed input; every
// decode path returns one of these instead.
const (
	errShortMessage parseError = "9p: message shorter than declared field"
	errShortHeader  parseError = "9p: message shorter than header"

	errMaxWalkElem  parseError = "9p: maximum walk elements exceeded"
	errLongFilename parseError = "9p: file name too long"
)

// ServerError is a 9P2000.L Rlerror reply: the server rejected the
// operation with a Linux errno. This is the only error shape the 9P
// server itself can produce; transport and decode failures are
// reported as plain Go errors by the caller instead.
type ServerError struct {
	Errno uint32
}

func (e *ServerError) Error() string {
	return "9p: server error, errno=" + strconv.FormatUint(uint64(e.Errno), 10)
}
