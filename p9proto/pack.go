package p9proto

import "encoding/binary"

// Shorthand for reading little-endian integers out of a byte slice.
var (
	guint16 = binary.LittleEndian.Uint16
	guint32 = binary.LittleEndian.Uint32
	guint64 = binary.LittleEndian.Uint64
)

// bit-packing helpers. Each appends its argument to buf and returns the
// extended slice; callers chain them when building a message body.

func puint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

func puint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func puint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func puint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func pstring(buf []byte, s string) []byte {
	buf = puint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func pdata(buf []byte, p []byte) []byte {
	buf = puint32(buf, uint32(len(p)))
	return append(buf, p...)
}

func pqid(buf []byte, q Qid) []byte {
	return append(buf, q[:QidSize]...)
}
