package p9proto

// This file builds the T-messages (client requests) this driver emits.
// Each Encode* function returns a complete, size-finalized message ready
// to be copied into a request DMA buffer. The caller supplies the tag;
// tag allocation is the client engine's job (package p9), not the
// codec's.

// finish rewrites the size[4] field at the front of buf with buf's
// total length and returns buf.
func finish(buf []byte) []byte {
	puint32(buf[:0], uint32(len(buf)))
	return buf
}

func header(typ MsgType, tag uint16) []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = puint32(buf, 0) // size, patched in finish
	buf = puint8(buf, uint8(typ))
	buf = puint16(buf, tag)
	return buf
}

func truncName(name string) string {
	if len(name) > MaxFilenameLen {
		return name[:MaxFilenameLen]
	}
	return name
}

// EncodeTversion builds a Tversion request negotiating msize and the
// protocol version string (always p9proto.Version in practice).
func EncodeTversion(tag uint16, msize uint32, version string) []byte {
	buf := header(Tversion, tag)
	buf = puint32(buf, msize)
	buf = pstring(buf, version)
	return finish(buf)
}

// EncodeTattach builds a Tattach request. afid should be NoFid for the
// unauthenticated attach this driver always performs.
func EncodeTattach(tag uint16, fid, afid uint32, uname, aname string, nuname uint32) []byte {
	buf := header(Tattach, tag)
	buf = puint32(buf, fid)
	buf = puint32(buf, afid)
	buf = pstring(buf, uname)
	buf = pstring(buf, aname)
	buf = puint32(buf, nuname)
	return finish(buf)
}

// EncodeTwalk builds a Twalk request cloning fid into newfid, descending
// through names. A zero-length names clones fid without descending. An
// error is returned if names is longer than MaxWalkElem elements, or if
// any single element is longer than MaxFilenameLen bytes.
func EncodeTwalk(tag uint16, fid, newfid uint32, names []string) ([]byte, error) {
	if len(names) > MaxWalkElem {
		return nil, errMaxWalkElem
	}
	for _, n := range names {
		if len(n) > MaxFilenameLen {
			return nil, errLongFilename
		}
	}
	buf := header(Twalk, tag)
	buf = puint32(buf, fid)
	buf = puint32(buf, newfid)
	buf = puint16(buf, uint16(len(names)))
	for _, n := range names {
		buf = pstring(buf, n)
	}
	return finish(buf), nil
}

// EncodeTlopen builds a Tlopen request. flags uses Linux open(2) bit
// values, as translated by the adapter.
func EncodeTlopen(tag uint16, fid uint32, flags uint32) []byte {
	buf := header(Tlopen, tag)
	buf = puint32(buf, fid)
	buf = puint32(buf, flags)
	return finish(buf)
}

// EncodeTlcreate builds a Tlcreate request, which both creates name
// under fid and repurposes fid to refer to the new, opened file. If
// name is longer than MaxFilenameLen, it is truncated.
func EncodeTlcreate(tag uint16, fid uint32, name string, flags, mode, gid uint32) []byte {
	buf := header(Tlcreate, tag)
	buf = puint32(buf, fid)
	buf = pstring(buf, truncName(name))
	buf = puint32(buf, flags)
	buf = puint32(buf, mode)
	buf = puint32(buf, gid)
	return finish(buf)
}

// EncodeTread builds a Tread request for count bytes starting at offset.
func EncodeTread(tag uint16, fid uint32, offset uint64, count uint32) []byte {
	buf := header(Tread, tag)
	buf = puint32(buf, fid)
	buf = puint64(buf, offset)
	buf = puint32(buf, count)
	return finish(buf)
}

// EncodeTwrite builds a Twrite request writing data at offset.
func EncodeTwrite(tag uint16, fid uint32, offset uint64, data []byte) []byte {
	buf := header(Twrite, tag)
	buf = puint32(buf, fid)
	buf = puint64(buf, offset)
	buf = pdata(buf, data)
	return finish(buf)
}

// EncodeTgetattr builds a Tgetattr request with the given field mask.
func EncodeTgetattr(tag uint16, fid uint32, mask GetattrMask) []byte {
	buf := header(Tgetattr, tag)
	buf = puint32(buf, fid)
	buf = puint64(buf, uint64(mask))
	return finish(buf)
}

// EncodeTsetattr builds a Tsetattr request. Only fields named in valid
// are applied by the server; the rest of the arguments are still
// encoded, with whatever values the caller passed, to keep the wire
// shape fixed.
func EncodeTsetattr(tag uint16, fid uint32, valid SetattrMask, mode, uid, gid uint32, size uint64, atime, mtime Timespec) []byte {
	buf := header(Tsetattr, tag)
	buf = puint32(buf, fid)
	buf = puint32(buf, uint32(valid))
	buf = puint32(buf, mode)
	buf = puint32(buf, uid)
	buf = puint32(buf, gid)
	buf = puint64(buf, size)
	buf = puint64(buf, atime.Sec)
	buf = puint64(buf, atime.Nsec)
	buf = puint64(buf, mtime.Sec)
	buf = puint64(buf, mtime.Nsec)
	return finish(buf)
}

// EncodeTreaddir builds a Treaddir request resuming from offset (zero
// on the first call for a given fid), requesting up to count bytes of
// encoded directory entries.
func EncodeTreaddir(tag uint16, fid uint32, offset uint64, count uint32) []byte {
	buf := header(Treaddir, tag)
	buf = puint32(buf, fid)
	buf = puint64(buf, offset)
	buf = puint32(buf, count)
	return finish(buf)
}

// EncodeTstatfs builds a Tstatfs request.
func EncodeTstatfs(tag uint16, fid uint32) []byte {
	buf := header(Tstatfs, tag)
	buf = puint32(buf, fid)
	return finish(buf)
}

// EncodeTclunk builds a Tclunk request releasing fid.
func EncodeTclunk(tag uint16, fid uint32) []byte {
	buf := header(Tclunk, tag)
	buf = puint32(buf, fid)
	return finish(buf)
}

// EncodeTunlinkat builds a Tunlinkat request removing name from the
// directory referenced by dirfid. flags carries AT_REMOVEDIR (0x200)
// when the target is expected to be a directory. If name is longer
// than MaxFilenameLen, it is truncated.
func EncodeTunlinkat(tag uint16, dirfid uint32, name string, flags uint32) []byte {
	buf := header(Tunlinkat, tag)
	buf = puint32(buf, dirfid)
	buf = pstring(buf, truncName(name))
	buf = puint32(buf, flags)
	return finish(buf)
}

// EncodeTmkdir builds a Tmkdir request creating directory name under
// dirfid. If name is longer than MaxFilenameLen, it is truncated.
func EncodeTmkdir(tag uint16, dirfid uint32, name string, mode, gid uint32) []byte {
	buf := header(Tmkdir, tag)
	buf = puint32(buf, dirfid)
	buf = pstring(buf, truncName(name))
	buf = puint32(buf, mode)
	buf = puint32(buf, gid)
	return finish(buf)
}

// EncodeTrenameat builds a Trenameat request, atomically moving
// oldname under olddirfid to newname under newdirfid. Names longer
// than MaxFilenameLen are truncated.
func EncodeTrenameat(tag uint16, olddirfid uint32, oldname string, newdirfid uint32, newname string) []byte {
	buf := header(Trenameat, tag)
	buf = puint32(buf, olddirfid)
	buf = pstring(buf, truncName(oldname))
	buf = puint32(buf, newdirfid)
	buf = pstring(buf, truncName(newname))
	return finish(buf)
}

// EncodeTfsync builds a Tfsync request for fid. The datasync flag is
// always zero: this driver does not distinguish data-only fsync from a
// full sync.
func EncodeTfsync(tag uint16, fid uint32) []byte {
	buf := header(Tfsync, tag)
	buf = puint32(buf, fid)
	buf = puint32(buf, 0)
	return finish(buf)
}
