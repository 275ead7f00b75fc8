package p9proto

// GetattrMask selects which fields of a FileAttr the server should
// populate in response to Tgetattr. This driver only ever requests
// GetattrBasic, but the bits are named for documentation and so callers
// constructing requests by hand can do so correctly.
type GetattrMask uint64

const (
	GetattrMode        GetattrMask = 0x00000001
	GetattrNlink       GetattrMask = 0x00000002
	GetattrUID         GetattrMask = 0x00000004
	GetattrGID         GetattrMask = 0x00000008
	GetattrRdev        GetattrMask = 0x00000010
	GetattrAtime       GetattrMask = 0x00000020
	GetattrMtime       GetattrMask = 0x00000040
	GetattrCtime       GetattrMask = 0x00000080
	GetattrIno         GetattrMask = 0x00000100
	GetattrSize        GetattrMask = 0x00000200
	GetattrBlocks      GetattrMask = 0x00000400
	GetattrBtime       GetattrMask = 0x00000800
	GetattrGen         GetattrMask = 0x00001000
	GetattrDataVersion GetattrMask = 0x00002000

	// GetattrBasic requests every field except btime/gen/data_version.
	GetattrBasic GetattrMask = 0x000007ff
)

// Timespec is a (seconds, nanoseconds) timestamp pair, as carried in
// FileAttr and as the setattr/futimens argument.
type Timespec struct {
	Sec  uint64
	Nsec uint64
}

// FileAttr is the fixed record returned by Tgetattr. The decoder
// parses every field even though callers only project a subset into
// the scheme Stat shape: unread fields would desynchronize the cursor
// for whatever follows in the same message.
type FileAttr struct {
	Valid       GetattrMask
	Qid         Qid
	Mode        uint32
	UID         uint32
	GID         uint32
	Nlink       uint64
	Rdev        uint64
	Size        uint64
	Blksize     uint64
	Blocks      uint64
	Atime       Timespec
	Mtime       Timespec
	Ctime       Timespec
	Btime       Timespec
	Gen         uint64
	DataVersion uint64
}

// SetattrMask selects which fields of a Tsetattr request the server
// should apply; unset fields are left untouched.
type SetattrMask uint32

const (
	SetattrMode  SetattrMask = 0x001
	SetattrUID   SetattrMask = 0x002
	SetattrGID   SetattrMask = 0x004
	SetattrSize  SetattrMask = 0x008
	SetattrAtime SetattrMask = 0x010
	SetattrMtime SetattrMask = 0x020
	// SetattrAtimeSet/SetattrMtimeSet distinguish "set to the value I
	// supplied" from "set to the server's current time"; this driver
	// always supplies an explicit value, so it always pairs these with
	// SetattrAtime/SetattrMtime.
	SetattrAtimeSet SetattrMask = 0x080
	SetattrMtimeSet SetattrMask = 0x100
)

// Statfs mirrors the POSIX statvfs(2) shape returned by Tstatfs.
type Statfs struct {
	Type       uint32
	Bsize      uint32
	Blocks     uint64
	Bfree      uint64
	Bavail     uint64
	Files      uint64
	Ffree      uint64
	Fsid       uint64
	NameLenMax uint32
}

// DirEntry is one entry in a Treaddir reply. NextOffset is an opaque
// resumption cookie chosen by the server: callers must pass it back
// verbatim on the next Treaddir and must never interpret it
// arithmetically.
type DirEntry struct {
	Qid        Qid
	NextOffset uint64
	Type       uint8
	Name       string
}
