package p9proto

// This file decodes R-messages (server replies). Decoding never panics:
// every accessor checks remaining length before reading and returns
// errShortMessage instead. Responses arrive as a single in-memory
// slice (the transact response DMA buffer already truncated to its
// declared size), so decoding is a simple left-to-right cursor walk
// rather than a streaming parse.

// Header is the fixed 7-byte prefix of every 9P message.
type Header struct {
	Size uint32
	Type MsgType
	Tag  uint16
}

// DecodeHeader reads the 7-byte header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errShortHeader
	}
	return Header{
		Size: guint32(buf[0:4]),
		Type: MsgType(buf[4]),
		Tag:  guint16(buf[5:7]),
	}, nil
}

// cursor walks a decode buffer left to right, failing closed on
// under-length reads rather than panicking.
type cursor struct {
	buf []byte
	pos int
	err error
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if len(c.buf)-c.pos < n {
		c.err = errShortMessage
		return false
	}
	return true
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.buf[c.pos]
	c.pos++
	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := guint16(c.buf[c.pos : c.pos+2])
	c.pos += 2
	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := guint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v
}

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := guint64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v
}

func (c *cursor) str() string {
	n := int(c.u16())
	if !c.need(n) {
		return ""
	}
	s := string(c.buf[c.pos : c.pos+n])
	c.pos += n
	return s
}

func (c *cursor) data() []byte {
	n := int(c.u32())
	if !c.need(n) {
		return nil
	}
	d := c.buf[c.pos : c.pos+n]
	c.pos += n
	return d
}

func (c *cursor) qid() Qid {
	if !c.need(QidSize) {
		return Qid{}
	}
	var q Qid
	copy(q[:], c.buf[c.pos:c.pos+QidSize])
	c.pos += QidSize
	return q
}

func (c *cursor) remaining() []byte { return c.buf[c.pos:] }

// body returns the bytes of a message following its 7-byte header.
func body(buf []byte) []byte {
	if len(buf) < HeaderSize {
		return nil
	}
	return buf[HeaderSize:]
}

// DecodeRlerror reads the errno out of an Rlerror/Rerror reply body.
func DecodeRlerror(buf []byte) (*ServerError, error) {
	c := newCursor(body(buf))
	errno := c.u32()
	if c.err != nil {
		return nil, c.err
	}
	return &ServerError{Errno: errno}, nil
}

// DecodeRversion reads the negotiated msize and version string.
func DecodeRversion(buf []byte) (msize uint32, version string, err error) {
	c := newCursor(body(buf))
	msize = c.u32()
	version = c.str()
	return msize, version, c.err
}

// DecodeRattach reads the root Qid.
func DecodeRattach(buf []byte) (Qid, error) {
	c := newCursor(body(buf))
	q := c.qid()
	return q, c.err
}

// DecodeRwalk reads the Qids returned for each successfully walked
// path component. A short walk (fewer Qids than requested components)
// is represented faithfully: the caller compares len(result) against
// the number of components it asked for.
func DecodeRwalk(buf []byte) ([]Qid, error) {
	c := newCursor(body(buf))
	n := int(c.u16())
	if c.err != nil {
		return nil, c.err
	}
	qids := make([]Qid, 0, n)
	for i := 0; i < n; i++ {
		qids = append(qids, c.qid())
	}
	return qids, c.err
}

// DecodeRlopen reads the Qid and iounit hint of a newly opened file.
func DecodeRlopen(buf []byte) (Qid, uint32, error) {
	c := newCursor(body(buf))
	q := c.qid()
	iounit := c.u32()
	return q, iounit, c.err
}

// DecodeRlcreate has the same shape as DecodeRlopen.
func DecodeRlcreate(buf []byte) (Qid, uint32, error) {
	return DecodeRlopen(buf)
}

// DecodeRread reads the data payload of a read reply. The returned
// slice aliases buf; callers must copy out of it before buf is reused.
func DecodeRread(buf []byte) ([]byte, error) {
	c := newCursor(body(buf))
	d := c.data()
	return d, c.err
}

// DecodeRwrite reads the number of bytes the server acknowledges
// having written.
func DecodeRwrite(buf []byte) (uint32, error) {
	c := newCursor(body(buf))
	n := c.u32()
	return n, c.err
}

// DecodeRgetattr reads a full FileAttr record.
func DecodeRgetattr(buf []byte) (FileAttr, error) {
	c := newCursor(body(buf))
	var a FileAttr
	a.Valid = GetattrMask(c.u64())
	a.Qid = c.qid()
	a.Mode = c.u32()
	a.UID = c.u32()
	a.GID = c.u32()
	a.Nlink = c.u64()
	a.Rdev = c.u64()
	a.Size = c.u64()
	a.Blksize = c.u64()
	a.Blocks = c.u64()
	a.Atime.Sec = c.u64()
	a.Atime.Nsec = c.u64()
	a.Mtime.Sec = c.u64()
	a.Mtime.Nsec = c.u64()
	a.Ctime.Sec = c.u64()
	a.Ctime.Nsec = c.u64()
	a.Btime.Sec = c.u64()
	a.Btime.Nsec = c.u64()
	a.Gen = c.u64()
	a.DataVersion = c.u64()
	return a, c.err
}

// DecodeRsetattr has no body beyond the header: success is the reply
// type itself.
func DecodeRsetattr(buf []byte) error {
	return nil
}

// DecodeRreaddir reads the data blob of a readdir reply and unpacks
// each directory entry in turn. A truncated trailing entry (the
// server filled the reply up to its requested byte count and stopped
// mid-entry) ends the scan without error: the caller resumes from the
// last entry's NextOffset.
func DecodeRreaddir(buf []byte) ([]DirEntry, error) {
	c := newCursor(body(buf))
	data := c.data()
	if c.err != nil {
		return nil, c.err
	}
	var entries []DirEntry
	ec := newCursor(data)
	for len(ec.remaining()) > 0 {
		q := ec.qid()
		off := ec.u64()
		typ := ec.u8()
		name := ec.str()
		if ec.err != nil {
			break
		}
		entries = append(entries, DirEntry{Qid: q, NextOffset: off, Type: typ, Name: name})
	}
	return entries, nil
}

// DecodeRstatfs reads a Statfs record.
func DecodeRstatfs(buf []byte) (Statfs, error) {
	c := newCursor(body(buf))
	var s Statfs
	s.Type = c.u32()
	s.Bsize = c.u32()
	s.Blocks = c.u64()
	s.Bfree = c.u64()
	s.Bavail = c.u64()
	s.Files = c.u64()
	s.Ffree = c.u64()
	s.Fsid = c.u64()
	s.NameLenMax = c.u32()
	return s, c.err
}

// DecodeRclunk, DecodeRunlinkat, DecodeRmkdir, DecodeRrenameat and
// DecodeRfsync below have no payload beyond a successful reply type,
// except where noted.

func DecodeRclunk(buf []byte) error    { return nil }
func DecodeRunlinkat(buf []byte) error { return nil }

// DecodeRmkdir reads the Qid of the newly created directory.
func DecodeRmkdir(buf []byte) (Qid, error) {
	c := newCursor(body(buf))
	q := c.qid()
	return q, c.err
}

func DecodeRrenameat(buf []byte) error { return nil }
func DecodeRfsync(buf []byte) error    { return nil }
