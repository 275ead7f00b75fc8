// Package fsadapter implements the handle table, path walker, and
// scheme adapter that sit between a microkernel file-service request
// stream and the 9P client engine in package p9. It owns fid lifetime
// (every fid it binds is eventually clunked), path splitting and
// walk-then-create semantics, open-flag translation, and the
// projection of 9P attribute/dirent/statfs shapes into the scheme's
// own Stat/Dirent/Statvfs shapes.
//
// The adapter assumes single-threaded, cooperative callers: one
// control loop dequeues a scheme request, calls into the adapter, and
// waits for it to return before dequeuing the next one. Nothing here
// takes a lock; exclusivity is a property of that calling discipline,
// not of this package.
package fsadapter
