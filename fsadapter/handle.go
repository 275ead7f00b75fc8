package fsadapter

import "github.com/hostfs/virtio9pd/p9proto"

// State is a handle's position in its lifecycle. Adapter.Open sets it
// when the handle is created; Adapter.OnClose removes the handle.
type State int

const (
	// Walked means the handle holds a fid bound by a walk (or a
	// stat-only open) but was never passed through lopen/lcreate.
	Walked State = iota
	// Opened means the handle's fid has been opened for I/O, either by
	// lopen or by lcreate (which opens as a side effect of creating).
	Opened
	// Closed is not actually stored: a closed handle is removed from
	// the table outright. It is named here for documentation of the
	// full transition set.
	Closed
)

// Handle is per-open-file state owned exclusively by the adapter's
// handle table.
type Handle struct {
	Fid   uint32
	Qid   p9proto.Qid
	Path  string
	Flags uint32
	State State

	// dirCursor is the opaque resumption cookie for directory
	// enumeration; zero denotes "start from the beginning". It must
	// never be interpreted arithmetically, only stored and replayed.
	dirCursor uint64
}

// table maps locally assigned handle ids to Handles. It is not safe
// for concurrent use: per the concurrency model, it is only ever
// touched from the single control thread that owns the scheme socket.
type table struct {
	next    uint64
	handles map[uint64]*Handle
}

func newTable() *table {
	return &table{next: 1, handles: make(map[uint64]*Handle)}
}

func (t *table) insert(h *Handle) uint64 {
	id := t.next
	t.next++
	t.handles[id] = h
	return id
}

func (t *table) get(id uint64) (*Handle, bool) {
	h, ok := t.handles[id]
	return h, ok
}

func (t *table) remove(id uint64) {
	delete(t.handles, id)
}
