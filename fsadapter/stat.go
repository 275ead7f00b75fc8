package fsadapter

import "github.com/hostfs/virtio9pd/p9proto"

// Stat is the scheme-facing projection of a 9P FileAttr. dev is always
// zero: every object this driver serves lives on the single attached
// 9P export, not on a local block device.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32 // low 16 bits of attr.Mode
	Nlink   uint64
	UID     uint32
	GID     uint32
	Size    uint64
	Blksize uint64
	Blocks  uint64
	Atime   p9proto.Timespec
	Mtime   p9proto.Timespec
	Ctime   p9proto.Timespec
}

// Statvfs is the scheme-facing projection of a 9P Statfs record.
type Statvfs struct {
	Bsize  uint32
	Blocks uint64
	Bfree  uint64
	Bavail uint64
}

// DirentKind distinguishes the two file kinds the scheme layer cares
// about; every other 9P qid type bit collapses to Regular.
type DirentKind int

const (
	DirentRegular DirentKind = iota
	DirentDirectory
)

// Dirent is one scheme-facing directory entry. NextOpaque must be
// passed back verbatim to resume enumeration; it is never interpreted
// arithmetically by this package or its callers.
type Dirent struct {
	Inode      uint64
	Name       string
	Kind       DirentKind
	NextOpaque uint64
}

func projectStat(attr p9proto.FileAttr) Stat {
	return Stat{
		Dev:     0,
		Ino:     attr.Qid.Path(),
		Mode:    attr.Mode & 0xffff,
		Nlink:   attr.Nlink,
		UID:     attr.UID,
		GID:     attr.GID,
		Size:    attr.Size,
		Blksize: attr.Blksize,
		Blocks:  attr.Blocks,
		Atime:   attr.Atime,
		Mtime:   attr.Mtime,
		Ctime:   attr.Ctime,
	}
}

func projectStatvfs(sfs p9proto.Statfs) Statvfs {
	return Statvfs{
		Bsize:  sfs.Bsize,
		Blocks: sfs.Blocks,
		Bfree:  sfs.Bfree,
		Bavail: sfs.Bavail,
	}
}

func projectDirent(e p9proto.DirEntry) Dirent {
	kind := DirentRegular
	if e.Qid.IsDir() {
		kind = DirentDirectory
	}
	return Dirent{
		Inode:      e.Qid.Path(),
		Name:       e.Name,
		Kind:       kind,
		NextOpaque: e.NextOffset,
	}
}
