package p9proto

import (
	"encoding/binary"
	"fmt"
)

// QidType is the type of a file as carried in the high 8 bits of a Qid:
// a bit vector, not an enumeration, since a file can be e.g. both a
// mount point and a directory.
type QidType uint8

// Qid type bits. Only QTDIR is consulted by this driver; the rest are
// decoded so callers can inspect them, but carry no special handling.
const (
	QTDIR    QidType = 0x80
	QTAPPEND QidType = 0x40
	QTEXCL   QidType = 0x20
	QTMOUNT  QidType = 0x10
	QTAUTH   QidType = 0x08
	QTTMP    QidType = 0x04
	QTSYMLINK QidType = 0x02
	QTFILE   QidType = 0x00
)

// A Qid is the server's unique identifier for a file: two files on the
// same export are the same object if and only if their Qids are equal.
// Qid is a fixed 13-byte encoding; it is opaque to this driver beyond
// its directory bit.
type Qid [QidSize]byte

// NewQid builds a Qid from its three fields.
func NewQid(typ QidType, version uint32, path uint64) Qid {
	var q Qid
	q[0] = byte(typ)
	binary.LittleEndian.PutUint32(q[1:5], version)
	binary.LittleEndian.PutUint64(q[5:13], path)
	return q
}

// Type returns the Qid's type bits.
func (q Qid) Type() QidType { return QidType(q[0]) }

// Version is incremented, roughly, each time the file is modified.
func (q Qid) Version() uint32 { return guint32(q[1:5]) }

// Path uniquely identifies the file within the exported hierarchy.
func (q Qid) Path() uint64 { return guint64(q[5:13]) }

// IsDir reports whether the Qid's type carries the directory bit.
func (q Qid) IsDir() bool { return q.Type()&QTDIR != 0 }

func (q Qid) String() string {
	return fmt.Sprintf("qid(type=%#x version=%d path=%d)", q.Type(), q.Version(), q.Path())
}
