package fsadapter

import (
	"context"
	stderrors "errors"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/hostfs/virtio9pd/p9"
	"github.com/hostfs/virtio9pd/p9proto"
)

// readdirBufferSize is the byte count requested of each Treaddir
// call. The adapter never grows or shrinks it per call; callers
// resume with the opaque cursor instead.
const readdirBufferSize = 4096

// unlinkRemoveDir is the 9P flag bit meaning "the target must be a
// directory", mirrored from the Linux AT_REMOVEDIR value.
const unlinkRemoveDir uint32 = 0x200

type adapterError string

func (e adapterError) Error() string { return string(e) }

const errRenameRoot = adapterError("fsadapter: cannot rename the root")

// Adapter translates scheme file-service operations into calls on a
// p9.Client, and owns the handle table those operations index into.
type Adapter struct {
	client     *p9.Client
	table      *table
	rootFid    uint32
	rootQid    p9proto.Qid
	schemeName string
	log        *logrus.Entry
}

// New returns an Adapter bound to the already-attached root described
// by rootQid. Callers perform Version/Attach on client before
// constructing an Adapter; the adapter itself never re-attaches.
func New(client *p9.Client, schemeName string, rootQid p9proto.Qid, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		client:     client,
		table:      newTable(),
		rootFid:    p9proto.RootFid,
		rootQid:    rootQid,
		schemeName: schemeName,
		log:        log,
	}
}

// Open resolves path, creating it if flags requests creation and it
// does not yet exist, and returns a handle id for it. See the
// walk/create/open sequencing in the path-walker design: a create
// that also requests a directory goes through Mkdir instead of
// Lcreate, and the resulting handle is left in the Walked state since
// mkdir does not open its target.
func (a *Adapter) Open(ctx context.Context, path string, flags, mode, gid uint32) (uint64, error) {
	names := splitPath(path)

	fid, qid, err := a.walkExisting(ctx, names)
	created := false
	createdDir := false

	if err != nil {
		var fe *Error
		if !stderrors.As(err, &fe) || fe.Kind != KindNotFound || flags&OCreat == 0 || len(names) == 0 {
			return 0, err
		}

		parentNames, name := splitParent(names)
		parentFid, perr := a.walkToParent(ctx, parentNames)
		if perr != nil {
			return 0, perr
		}

		if flags&ODirectory != 0 {
			_, merr := a.client.Mkdir(ctx, parentFid, name, mode, gid)
			if clunkErr := a.client.Clunk(ctx, parentFid); clunkErr != nil && merr == nil {
				merr = clunkErr
			}
			if merr != nil {
				return 0, classify("open", merr)
			}
			fid, qid, err = a.walkExisting(ctx, names)
			if err != nil {
				return 0, err
			}
			createdDir = true
		} else {
			lflags := translateLopenFlags(flags)
			newQid, _, cerr := a.client.Lcreate(ctx, parentFid, name, lflags, createMode(mode), gid)
			if cerr != nil {
				if clunkErr := a.client.Clunk(ctx, parentFid); clunkErr != nil {
					cerr = multierror.Append(cerr, clunkErr)
				}
				return 0, classify("open", cerr)
			}
			fid = parentFid
			qid = newQid
			created = true
		}
	}

	statOnly := isStatOnly(flags)

	if qid.IsDir() && !statOnly && flags&ODirectory == 0 {
		if clunkErr := a.client.Clunk(ctx, fid); clunkErr != nil {
			a.log.WithError(clunkErr).Debug("open: clunk after directory-consistency rejection failed")
		}
		return 0, isDirectory("open")
	}

	var state State
	switch {
	case created:
		// lcreate already opened the file as a side effect.
		state = Opened
	case createdDir:
		// mkdir never opens; the handle stays at Walked until a
		// caller explicitly reopens it.
		state = Walked
	case statOnly:
		state = Walked
	default:
		lflags := translateLopenFlags(flags)
		if _, _, operr := a.client.Lopen(ctx, fid, lflags); operr != nil {
			if clunkErr := a.client.Clunk(ctx, fid); clunkErr != nil {
				operr = multierror.Append(operr, clunkErr)
			}
			return 0, classify("open", operr)
		}
		state = Opened
	}

	h := &Handle{Fid: fid, Qid: qid, Path: path, Flags: flags, State: state}
	return a.table.insert(h), nil
}

// Read copies up to len(buf) bytes from handle id at offset into buf
// and returns the number of bytes copied. A returned count of zero is
// end-of-file.
func (a *Adapter) Read(ctx context.Context, id uint64, buf []byte, offset uint64) (int, error) {
	h, ok := a.table.get(id)
	if !ok || h.State != Opened {
		return 0, badHandle("read")
	}
	if h.Qid.IsDir() {
		return 0, isDirectory("read")
	}
	mode := h.Flags & AccessModeMask
	if mode != OReadOnly && mode != OReadWrite {
		return 0, badAccess("read")
	}
	data, err := a.client.Read(ctx, h.Fid, offset, uint32(len(buf)))
	if err != nil {
		return 0, classify("read", err)
	}
	return copy(buf, data), nil
}

// Write writes buf to handle id at offset and returns the server's
// acknowledged count.
func (a *Adapter) Write(ctx context.Context, id uint64, buf []byte, offset uint64) (uint32, error) {
	h, ok := a.table.get(id)
	if !ok || h.State != Opened {
		return 0, badHandle("write")
	}
	if h.Qid.IsDir() {
		return 0, isDirectory("write")
	}
	n, err := a.client.Write(ctx, h.Fid, offset, buf)
	if err != nil {
		return 0, classify("write", err)
	}
	return n, nil
}

// Getdents lists directory entries for handle id, resuming from
// offset (zero for the first call). It returns the entries read and
// the cursor to pass as offset on the next call.
func (a *Adapter) Getdents(ctx context.Context, id uint64, offset uint64) ([]Dirent, uint64, error) {
	h, ok := a.table.get(id)
	if !ok {
		return nil, 0, badHandle("getdents")
	}
	if !h.Qid.IsDir() {
		return nil, 0, notDirectory("getdents")
	}
	if h.State != Opened {
		return nil, 0, badHandle("getdents")
	}
	entries, err := a.client.Readdir(ctx, h.Fid, offset, readdirBufferSize)
	if err != nil {
		return nil, 0, classify("getdents", err)
	}
	out := make([]Dirent, len(entries))
	next := offset
	for i, e := range entries {
		out[i] = projectDirent(e)
		next = e.NextOffset
	}
	h.dirCursor = next
	return out, next, nil
}

// Fstat retrieves and projects attributes for handle id. Valid for
// handles in either the Walked or Opened state.
func (a *Adapter) Fstat(ctx context.Context, id uint64) (Stat, error) {
	h, ok := a.table.get(id)
	if !ok {
		return Stat{}, badHandle("fstat")
	}
	attr, err := a.client.Getattr(ctx, h.Fid, p9proto.GetattrBasic)
	if err != nil {
		return Stat{}, classify("fstat", err)
	}
	return projectStat(attr), nil
}

// Fstatvfs retrieves and projects filesystem statistics for handle
// id's export.
func (a *Adapter) Fstatvfs(ctx context.Context, id uint64) (Statvfs, error) {
	h, ok := a.table.get(id)
	if !ok {
		return Statvfs{}, badHandle("fstatvfs")
	}
	sfs, err := a.client.Statfs(ctx, h.Fid)
	if err != nil {
		return Statvfs{}, classify("fstatvfs", err)
	}
	return projectStatvfs(sfs), nil
}

// Fpath returns "/<scheme_name>/<stored_path>" for handle id,
// truncated to maxLen bytes.
func (a *Adapter) Fpath(id uint64, maxLen int) (string, error) {
	h, ok := a.table.get(id)
	if !ok {
		return "", badHandle("fpath")
	}
	p := h.Path
	if len(p) == 0 || p[0] != '/' {
		p = "/" + p
	}
	full := "/" + a.schemeName + p
	if len(full) > maxLen {
		full = full[:maxLen]
	}
	return full, nil
}

// Fsync forces durability of data written to handle id.
func (a *Adapter) Fsync(ctx context.Context, id uint64) error {
	h, ok := a.table.get(id)
	if !ok || h.State != Opened {
		return badHandle("fsync")
	}
	return classify("fsync", a.client.Fsync(ctx, h.Fid))
}

// Unlinkat removes name from the directory referenced by dirID.
func (a *Adapter) Unlinkat(ctx context.Context, dirID uint64, name string, removeDir bool) error {
	h, ok := a.table.get(dirID)
	if !ok {
		return badHandle("unlinkat")
	}
	var flags uint32
	if removeDir {
		flags = unlinkRemoveDir
	}
	return classify("unlinkat", a.client.Unlinkat(ctx, h.Fid, name, flags))
}

func (a *Adapter) setattr(ctx context.Context, id uint64, valid p9proto.SetattrMask, mode, uid, gid uint32, size uint64, atime, mtime p9proto.Timespec) error {
	h, ok := a.table.get(id)
	if !ok {
		return badHandle("setattr")
	}
	return classify("setattr", a.client.Setattr(ctx, h.Fid, valid, mode, uid, gid, size, atime, mtime))
}

// Fchmod updates handle id's permission bits.
func (a *Adapter) Fchmod(ctx context.Context, id uint64, mode uint32) error {
	return a.setattr(ctx, id, p9proto.SetattrMode, mode, 0, 0, 0, p9proto.Timespec{}, p9proto.Timespec{})
}

// Fchown updates handle id's owning uid and gid.
func (a *Adapter) Fchown(ctx context.Context, id uint64, uid, gid uint32) error {
	return a.setattr(ctx, id, p9proto.SetattrUID|p9proto.SetattrGID, 0, uid, gid, 0, p9proto.Timespec{}, p9proto.Timespec{})
}

// Ftruncate updates handle id's size.
func (a *Adapter) Ftruncate(ctx context.Context, id uint64, size uint64) error {
	return a.setattr(ctx, id, p9proto.SetattrSize, 0, 0, 0, size, p9proto.Timespec{}, p9proto.Timespec{})
}

// Futimens updates handle id's access and modification times. Per the
// design, supplying fewer than both timestamps succeeds without a
// round trip rather than attempting a partial update.
func (a *Adapter) Futimens(ctx context.Context, id uint64, atime, mtime *p9proto.Timespec) error {
	if atime == nil || mtime == nil {
		return nil
	}
	valid := p9proto.SetattrAtime | p9proto.SetattrAtimeSet | p9proto.SetattrMtime | p9proto.SetattrMtimeSet
	return a.setattr(ctx, id, valid, 0, 0, 0, 0, *atime, *mtime)
}

// Frename moves handle id's file to newPath, walking both the old and
// new parent directories to obtain temporary dir-fids and clunking
// both regardless of whether the rename itself succeeded.
func (a *Adapter) Frename(ctx context.Context, id uint64, newPath string) error {
	h, ok := a.table.get(id)
	if !ok {
		return badHandle("frename")
	}
	oldNames := splitPath(h.Path)
	newNames := splitPath(newPath)
	if len(oldNames) == 0 || len(newNames) == 0 {
		return ioError("frename", errRenameRoot)
	}

	oldParent, oldName := splitParent(oldNames)
	newParent, newName := splitParent(newNames)

	oldDirFid, err := a.walkToParent(ctx, oldParent)
	if err != nil {
		return err
	}
	newDirFid, err := a.walkToParent(ctx, newParent)
	if err != nil {
		if clunkErr := a.client.Clunk(ctx, oldDirFid); clunkErr != nil {
			err = multierror.Append(err, clunkErr)
		}
		return classify("frename", err)
	}

	renameErr := a.client.Renameat(ctx, oldDirFid, oldName, newDirFid, newName)

	var cleanup *multierror.Error
	if clunkErr := a.client.Clunk(ctx, oldDirFid); clunkErr != nil {
		cleanup = multierror.Append(cleanup, clunkErr)
	}
	if clunkErr := a.client.Clunk(ctx, newDirFid); clunkErr != nil {
		cleanup = multierror.Append(cleanup, clunkErr)
	}

	if renameErr != nil {
		if cleanup != nil {
			renameErr = multierror.Append(cleanup, renameErr).ErrorOrNil()
		}
		return classify("frename", renameErr)
	}
	if cleanup != nil {
		a.log.WithError(cleanup).Warn("frename: dir-fid cleanup failed after a successful rename")
	}

	h.Path = newPath
	return nil
}

// OnClose removes handle id from the table and clunks its fid.
// Closing an unknown handle id is a no-op, not an error; clunk
// failures are logged, not propagated, since the handle is gone from
// the table either way.
func (a *Adapter) OnClose(ctx context.Context, id uint64) error {
	h, ok := a.table.get(id)
	if !ok {
		return nil
	}
	a.table.remove(id)
	if err := a.client.Clunk(ctx, h.Fid); err != nil {
		a.log.WithError(err).Debug("on_close: clunk failed, ignoring")
	}
	return nil
}
