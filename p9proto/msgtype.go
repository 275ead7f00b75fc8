package p9proto

// MsgType identifies the kind of a 9P message. Every T-message (client
// request) has a corresponding R-message (server reply) with a type
// number one greater.
type MsgType uint8

// Message types used by this driver. Numeric values match the 9P2000.L
// wire protocol; T-codes and their R-code replies are listed together.
const (
	Tstatfs MsgType = 8
	Rstatfs MsgType = 9

	Tlopen MsgType = 12
	Rlopen MsgType = 13

	Tlcreate MsgType = 14
	Rlcreate MsgType = 15

	Tgetattr MsgType = 24
	Rgetattr MsgType = 25

	Tsetattr MsgType = 26
	Rsetattr MsgType = 27

	Treaddir MsgType = 40
	Rreaddir MsgType = 41

	Tfsync MsgType = 50
	Rfsync MsgType = 51

	Tmkdir    MsgType = 72
	Rmkdir    MsgType = 73
	Trenameat MsgType = 74
	Rrenameat MsgType = 75
	Tunlinkat MsgType = 76
	Runlinkat MsgType = 77

	Tversion MsgType = 100
	Rversion MsgType = 101

	Tattach MsgType = 104
	Rattach MsgType = 105

	// Rerror and Rlerror name the same type byte: an error reply to
	// any operation whose body is a single errno[4], with no Ename
	// string. A legacy string-carrying Rerror body is not decoded; its
	// first four bytes would be read as the errno.
	Rerror  MsgType = 107
	Rlerror MsgType = 107

	Twalk MsgType = 110
	Rwalk MsgType = 111

	Tread MsgType = 116
	Rread MsgType = 117

	Twrite MsgType = 118
	Rwrite MsgType = 119

	Tclunk MsgType = 120
	Rclunk MsgType = 121
)

func (t MsgType) String() string {
	switch t {
	case Tstatfs:
		return "Tstatfs"
	case Rstatfs:
		return "Rstatfs"
	case Tlopen:
		return "Tlopen"
	case Rlopen:
		return "Rlopen"
	case Tlcreate:
		return "Tlcreate"
	case Rlcreate:
		return "Rlcreate"
	case Tgetattr:
		return "Tgetattr"
	case Rgetattr:
		return "Rgetattr"
	case Tsetattr:
		return "Tsetattr"
	case Rsetattr:
		return "Rsetattr"
	case Treaddir:
		return "Treaddir"
	case Rreaddir:
		return "Rreaddir"
	case Tfsync:
		return "Tfsync"
	case Rfsync:
		return "Rfsync"
	case Tmkdir:
		return "Tmkdir"
	case Rmkdir:
		return "Rmkdir"
	case Trenameat:
		return "Trenameat"
	case Rrenameat:
		return "Rrenameat"
	case Tunlinkat:
		return "Tunlinkat"
	case Runlinkat:
		return "Runlinkat"
	case Tversion:
		return "Tversion"
	case Rversion:
		return "Rversion"
	case Tattach:
		return "Tattach"
	case Rattach:
		return "Rattach"
	case Rerror:
		return "Rerror"
	case Twalk:
		return "Twalk"
	case Rwalk:
		return "Rwalk"
	case Tread:
		return "Tread"
	case Rread:
		return "Rread"
	case Twrite:
		return "Twrite"
	case Rwrite:
		return "Rwrite"
	case Tclunk:
		return "Tclunk"
	case Rclunk:
		return "Rclunk"
	default:
		return "Tunknown"
	}
}
