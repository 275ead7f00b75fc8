package p9

import (
	"context"

	"github.com/hostfs/virtio9pd/p9proto"
)

// Version negotiates the protocol version and msize. It must be the
// first call made on a fresh Client. If the server's version string
// does not match what this driver speaks, Version fails: there is no
// fallback to plain 9P2000.
func (c *Client) Version(ctx context.Context) error {
	tag := c.nextTag()
	req := p9proto.EncodeTversion(tag, c.msize, p9proto.Version)

	resp, err := c.transact(ctx, "version", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("version", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rversion {
		return opErr("version", KindProtocol, errUnexpectedType(p9proto.Rversion, hdr.Type))
	}
	msize, version, err := p9proto.DecodeRversion(resp)
	if err != nil {
		return opErr("version", KindProtocol, err)
	}
	if version != p9proto.Version {
		return opErr("version", KindProtocol, errVersionMismatch(version))
	}
	if msize < c.msize {
		c.msize = msize
	}
	return nil
}

// Attach binds the root fid (0) to the server's file tree named by
// aname, unauthenticated (afid = NoFid). It returns the root Qid.
func (c *Client) Attach(ctx context.Context, aname string) (p9proto.Qid, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTattach(tag, p9proto.RootFid, p9proto.NoFid, "", aname, 0)

	resp, err := c.transact(ctx, "attach", req)
	if err != nil {
		return p9proto.Qid{}, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.Qid{}, opErr("attach", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rattach {
		return p9proto.Qid{}, opErr("attach", KindProtocol, errUnexpectedType(p9proto.Rattach, hdr.Type))
	}
	qid, err := p9proto.DecodeRattach(resp)
	if err != nil {
		return p9proto.Qid{}, opErr("attach", KindProtocol, err)
	}
	return qid, nil
}

// Walk clones fid into newfid, descending through names. If the
// server returns fewer Qids than len(names), the walk failed partway
// and the returned error has Kind KindWalkIncomplete; newfid is not
// bound in that case and the caller (package fsadapter) is
// responsible for clunking it. Walks exceeding the codec's element or
// name-length limits are rejected before anything reaches the wire.
func (c *Client) Walk(ctx context.Context, fid, newfid uint32, names []string) ([]p9proto.Qid, error) {
	tag := c.nextTag()
	req, err := p9proto.EncodeTwalk(tag, fid, newfid, names)
	if err != nil {
		return nil, opErr("walk", KindProtocol, err)
	}

	resp, err := c.transact(ctx, "walk", req)
	if err != nil {
		return nil, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return nil, opErr("walk", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rwalk {
		return nil, opErr("walk", KindProtocol, errUnexpectedType(p9proto.Rwalk, hdr.Type))
	}
	qids, err := p9proto.DecodeRwalk(resp)
	if err != nil {
		return nil, opErr("walk", KindProtocol, err)
	}
	if len(names) > 0 && len(qids) != len(names) {
		return qids, opErr("walk", KindWalkIncomplete, errWalkShort(len(names), len(qids)))
	}
	return qids, nil
}

// Lopen opens fid for I/O using Linux-style open flags.
func (c *Client) Lopen(ctx context.Context, fid uint32, flags uint32) (p9proto.Qid, uint32, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTlopen(tag, fid, flags)

	resp, err := c.transact(ctx, "lopen", req)
	if err != nil {
		return p9proto.Qid{}, 0, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.Qid{}, 0, opErr("lopen", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rlopen {
		return p9proto.Qid{}, 0, opErr("lopen", KindProtocol, errUnexpectedType(p9proto.Rlopen, hdr.Type))
	}
	qid, iounit, err := p9proto.DecodeRlopen(resp)
	if err != nil {
		return p9proto.Qid{}, 0, opErr("lopen", KindProtocol, err)
	}
	return qid, iounit, nil
}

// Lcreate creates name under the directory fid, and repurposes fid to
// refer to the newly created, already-opened file: no subsequent Lopen
// is needed or permitted.
func (c *Client) Lcreate(ctx context.Context, fid uint32, name string, flags, mode, gid uint32) (p9proto.Qid, uint32, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTlcreate(tag, fid, name, flags, mode, gid)

	resp, err := c.transact(ctx, "lcreate", req)
	if err != nil {
		return p9proto.Qid{}, 0, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.Qid{}, 0, opErr("lcreate", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rlcreate {
		return p9proto.Qid{}, 0, opErr("lcreate", KindProtocol, errUnexpectedType(p9proto.Rlcreate, hdr.Type))
	}
	qid, iounit, err := p9proto.DecodeRlcreate(resp)
	if err != nil {
		return p9proto.Qid{}, 0, opErr("lcreate", KindProtocol, err)
	}
	return qid, iounit, nil
}

// Read reads up to count bytes from fid at offset. count is clamped to
// msize-11 (7-byte header + 4-byte data length prefix) before the
// request is sent, so the reply can never overflow the response
// buffer.
func (c *Client) Read(ctx context.Context, fid uint32, offset uint64, count uint32) ([]byte, error) {
	if max := c.msize - (p9proto.HeaderSize + 4); count > max {
		count = max
	}
	tag := c.nextTag()
	req := p9proto.EncodeTread(tag, fid, offset, count)

	resp, err := c.transact(ctx, "read", req)
	if err != nil {
		return nil, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return nil, opErr("read", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rread {
		return nil, opErr("read", KindProtocol, errUnexpectedType(p9proto.Rread, hdr.Type))
	}
	data, err := p9proto.DecodeRread(resp)
	if err != nil {
		return nil, opErr("read", KindProtocol, err)
	}
	// The response buffer is reused on the next transact call; hand the
	// caller a copy rather than an alias into it.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write writes data to fid at offset and returns the number of bytes
// the server acknowledges. data is clamped so the encoded request
// (header 7 + fid 4 + offset 8 + count 4) fits within msize; callers
// seeing a short acknowledged count resubmit the remainder themselves.
// A zero-length write is a valid request and returns count zero.
func (c *Client) Write(ctx context.Context, fid uint32, offset uint64, data []byte) (uint32, error) {
	if max := int(c.msize) - (p9proto.HeaderSize + 16); len(data) > max {
		data = data[:max]
	}
	tag := c.nextTag()
	req := p9proto.EncodeTwrite(tag, fid, offset, data)

	resp, err := c.transact(ctx, "write", req)
	if err != nil {
		return 0, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return 0, opErr("write", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rwrite {
		return 0, opErr("write", KindProtocol, errUnexpectedType(p9proto.Rwrite, hdr.Type))
	}
	n, err := p9proto.DecodeRwrite(resp)
	if err != nil {
		return 0, opErr("write", KindProtocol, err)
	}
	return n, nil
}

// Getattr retrieves fid's attributes using the given field mask.
func (c *Client) Getattr(ctx context.Context, fid uint32, mask p9proto.GetattrMask) (p9proto.FileAttr, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTgetattr(tag, fid, mask)

	resp, err := c.transact(ctx, "getattr", req)
	if err != nil {
		return p9proto.FileAttr{}, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.FileAttr{}, opErr("getattr", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rgetattr {
		return p9proto.FileAttr{}, opErr("getattr", KindProtocol, errUnexpectedType(p9proto.Rgetattr, hdr.Type))
	}
	attr, err := p9proto.DecodeRgetattr(resp)
	if err != nil {
		return p9proto.FileAttr{}, opErr("getattr", KindProtocol, err)
	}
	return attr, nil
}

// Setattr updates a selective subset of fid's attributes.
func (c *Client) Setattr(ctx context.Context, fid uint32, valid p9proto.SetattrMask, mode, uid, gid uint32, size uint64, atime, mtime p9proto.Timespec) error {
	tag := c.nextTag()
	req := p9proto.EncodeTsetattr(tag, fid, valid, mode, uid, gid, size, atime, mtime)

	resp, err := c.transact(ctx, "setattr", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("setattr", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rsetattr {
		return opErr("setattr", KindProtocol, errUnexpectedType(p9proto.Rsetattr, hdr.Type))
	}
	return nil
}

// Readdir reads up to count bytes of encoded directory entries from
// fid, resuming at offset (the opaque cookie from the last entry seen,
// or zero on the first call).
func (c *Client) Readdir(ctx context.Context, fid uint32, offset uint64, count uint32) ([]p9proto.DirEntry, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTreaddir(tag, fid, offset, count)

	resp, err := c.transact(ctx, "readdir", req)
	if err != nil {
		return nil, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return nil, opErr("readdir", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rreaddir {
		return nil, opErr("readdir", KindProtocol, errUnexpectedType(p9proto.Rreaddir, hdr.Type))
	}
	entries, err := p9proto.DecodeRreaddir(resp)
	if err != nil {
		return nil, opErr("readdir", KindProtocol, err)
	}
	return entries, nil
}

// Statfs retrieves filesystem statistics for the export containing fid.
func (c *Client) Statfs(ctx context.Context, fid uint32) (p9proto.Statfs, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTstatfs(tag, fid)

	resp, err := c.transact(ctx, "statfs", req)
	if err != nil {
		return p9proto.Statfs{}, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.Statfs{}, opErr("statfs", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rstatfs {
		return p9proto.Statfs{}, opErr("statfs", KindProtocol, errUnexpectedType(p9proto.Rstatfs, hdr.Type))
	}
	sfs, err := p9proto.DecodeRstatfs(resp)
	if err != nil {
		return p9proto.Statfs{}, opErr("statfs", KindProtocol, err)
	}
	return sfs, nil
}

// Clunk releases fid. The caller must not use fid again afterward,
// whether Clunk succeeds or fails.
func (c *Client) Clunk(ctx context.Context, fid uint32) error {
	tag := c.nextTag()
	req := p9proto.EncodeTclunk(tag, fid)

	resp, err := c.transact(ctx, "clunk", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("clunk", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rclunk {
		return opErr("clunk", KindProtocol, errUnexpectedType(p9proto.Rclunk, hdr.Type))
	}
	return nil
}

// Unlinkat removes name from the directory fid. flags carries the
// AT_REMOVEDIR bit (0x200) when the target must be a directory.
func (c *Client) Unlinkat(ctx context.Context, dirfid uint32, name string, flags uint32) error {
	tag := c.nextTag()
	req := p9proto.EncodeTunlinkat(tag, dirfid, name, flags)

	resp, err := c.transact(ctx, "unlinkat", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("unlinkat", KindProtocol, err)
	}
	if hdr.Type != p9proto.Runlinkat {
		return opErr("unlinkat", KindProtocol, errUnexpectedType(p9proto.Runlinkat, hdr.Type))
	}
	return nil
}

// Mkdir creates directory name under dirfid and returns its Qid. Mkdir
// does not open the new directory, unlike Lcreate.
func (c *Client) Mkdir(ctx context.Context, dirfid uint32, name string, mode, gid uint32) (p9proto.Qid, error) {
	tag := c.nextTag()
	req := p9proto.EncodeTmkdir(tag, dirfid, name, mode, gid)

	resp, err := c.transact(ctx, "mkdir", req)
	if err != nil {
		return p9proto.Qid{}, err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return p9proto.Qid{}, opErr("mkdir", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rmkdir {
		return p9proto.Qid{}, opErr("mkdir", KindProtocol, errUnexpectedType(p9proto.Rmkdir, hdr.Type))
	}
	qid, err := p9proto.DecodeRmkdir(resp)
	if err != nil {
		return p9proto.Qid{}, opErr("mkdir", KindProtocol, err)
	}
	return qid, nil
}

// Renameat atomically moves oldname under olddirfid to newname under
// newdirfid.
func (c *Client) Renameat(ctx context.Context, olddirfid uint32, oldname string, newdirfid uint32, newname string) error {
	tag := c.nextTag()
	req := p9proto.EncodeTrenameat(tag, olddirfid, oldname, newdirfid, newname)

	resp, err := c.transact(ctx, "renameat", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("renameat", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rrenameat {
		return opErr("renameat", KindProtocol, errUnexpectedType(p9proto.Rrenameat, hdr.Type))
	}
	return nil
}

// Fsync forces durability of any data written to fid.
func (c *Client) Fsync(ctx context.Context, fid uint32) error {
	tag := c.nextTag()
	req := p9proto.EncodeTfsync(tag, fid)

	resp, err := c.transact(ctx, "fsync", req)
	if err != nil {
		return err
	}
	hdr, err := p9proto.DecodeHeader(resp)
	if err != nil {
		return opErr("fsync", KindProtocol, err)
	}
	if hdr.Type != p9proto.Rfsync {
		return opErr("fsync", KindProtocol, errUnexpectedType(p9proto.Rfsync, hdr.Type))
	}
	return nil
}
