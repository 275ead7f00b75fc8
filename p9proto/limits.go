package p9proto

// HeaderSize is the size, in bytes, of the size[4] type[1] tag[2] header
// that prefixes every 9P message.
const HeaderSize = 7

// QidSize is the encoded size, in bytes, of a Qid: type[1] version[4] path[8].
const QidSize = 13

// DefaultMsize is the msize this driver advertises in Tversion. The server
// may negotiate a smaller value; the client adopts whichever is smaller.
const DefaultMsize = 131072

// Version is the protocol version string this driver speaks. 9P2000.L is
// negotiated unconditionally; there is no fallback to plain 9P2000.
const Version = "9P2000.L"

// NoFid is the sentinel fid value meaning "no auth required" (passed as
// afid in Tattach) and, more generally, "absence of a fid". It must never
// be used to name a real, bound fid.
const NoFid uint32 = 0xFFFFFFFF

// RootFid is the fid bound to the export's root directory by Tattach.
const RootFid uint32 = 0

// MaxWalkElem is the maximum number of path components a single Twalk
// request may carry. EncodeTwalk rejects longer walks.
const MaxWalkElem = 16

// MaxFilenameLen is the maximum length, in bytes, of a single path
// component or file name carried in a message. EncodeTwalk rejects
// longer walk elements; the name-carrying encoders truncate.
const MaxFilenameLen = 512
