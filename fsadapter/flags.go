package fsadapter

// Open flags use the same bit layout the scheme's own open(2)-style
// request already carries (Linux numeric values), so no translation
// table is needed at the call boundary; only the subset lopen actually
// understands is forwarded to the 9P layer.
const (
	AccessModeMask uint32 = 0o3 // O_ACCMODE

	OReadOnly  uint32 = 0x0
	OWriteOnly uint32 = 0x1
	OReadWrite uint32 = 0x2

	OCreat     uint32 = 0o100
	OTrunc     uint32 = 0o1000  // 0x200, matches the 9P lopen truncate bit
	ODirectory uint32 = 0o200000
)

// modeRegularFile is the file-type bits lcreate's mode argument must
// carry for a plain file.
const modeRegularFile uint32 = 0o100000

// translateLopenFlags keeps only the bits Tlopen understands: the
// access-mode pair and the truncate bit. The create bit is consumed
// by the walk-to-parent-then-create path and never forwarded here.
func translateLopenFlags(flags uint32) uint32 {
	out := flags & AccessModeMask
	if flags&OTrunc != 0 {
		out |= OTrunc
	}
	return out
}

// createMode computes the mode argument for Lcreate from the caller's
// requested permission bits.
func createMode(mode uint32) uint32 {
	return (mode & 0o7777) | modeRegularFile
}

func isStatOnly(flags uint32) bool {
	return flags&OStatOnly != 0
}

// OStatOnly marks an open request that never intends to read or write
// the file, only to stat it. It is out-of-band from the Linux
// access-mode bits, matching how the scheme layer's stat-only opens
// are distinguished upstream of this driver. A stat-only open skips
// lopen entirely; the handle holds only the walk-obtained fid.
const OStatOnly uint32 = 1 << 31
