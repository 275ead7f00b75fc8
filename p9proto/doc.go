// Package p9proto implements the wire encoding of 9P2000.L messages:
// the Linux-flavored variant of the Plan 9 filesystem protocol used by
// virtio-9p. It does not perform any I/O; it only builds and parses the
// byte slices that the client engine in package p9 sends and receives.
//
// Every message starts with a 7-byte header (size[4] type[1] tag[2]),
// followed by a type-specific body. All integers are little-endian.
// Strings are length-prefixed with a uint16; byte blobs with a uint32.
package p9proto
