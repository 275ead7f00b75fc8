package main

import (
	"encoding/binary"

	"github.com/hostfs/virtio9pd/p9proto"
)

// loopbackHandler returns a transport.Handler that answers exactly the
// two requests the --fake-transport startup sequence issues, Tversion
// and Tattach. It is demo scaffolding for exercising the handshake
// without a real 9P server on the other end of the queue, not a
// general-purpose 9P server: every other request type gets an Rlerror.
func loopbackHandler(mountTag string) func([]byte) []byte {
	return func(req []byte) []byte {
		hdr, err := p9proto.DecodeHeader(req)
		if err != nil {
			return encodeRlerror(0, errnoBadMessage)
		}
		switch hdr.Type {
		case p9proto.Tversion:
			return handleTversion(req, hdr.Tag)
		case p9proto.Tattach:
			return handleTattach(req, hdr.Tag, mountTag)
		default:
			return encodeRlerror(hdr.Tag, errnoNotSupported)
		}
	}
}

const (
	errnoBadMessage   = 71 // EPROTO
	errnoNotSupported = 95 // EOPNOTSUPP
)

func encodeRlerror(tag uint16, errno uint32) []byte {
	buf := make([]byte, p9proto.HeaderSize+4)
	binary.LittleEndian.PutUint32(buf[7:11], errno)
	buf[4] = byte(p9proto.Rerror)
	binary.LittleEndian.PutUint16(buf[5:7], tag)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

// handleTversion parses the bare fields of a Tversion request (msize,
// version string) and echoes them back unchanged: the fake transport
// has no real negotiation to perform, it just proves the codec and
// client engine round-trip correctly end to end.
func handleTversion(req []byte, tag uint16) []byte {
	body := req[p9proto.HeaderSize:]
	if len(body) < 4 {
		return encodeRlerror(tag, errnoBadMessage)
	}
	msize := binary.LittleEndian.Uint32(body[0:4])
	rest := body[4:]
	if len(rest) < 2 {
		return encodeRlerror(tag, errnoBadMessage)
	}
	strLen := int(binary.LittleEndian.Uint16(rest[0:2]))
	if len(rest) < 2+strLen {
		return encodeRlerror(tag, errnoBadMessage)
	}
	version := rest[2 : 2+strLen]

	buf := make([]byte, 0, p9proto.HeaderSize+4+2+len(version))
	buf = append(buf, 0, 0, 0, 0) // size, patched below
	buf = append(buf, byte(p9proto.Rversion))
	buf = appendUint16(buf, tag)
	buf = appendUint32(buf, msize)
	buf = appendUint16(buf, uint16(len(version)))
	buf = append(buf, version...)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

// handleTattach replies to a Tattach request with a synthetic root Qid
// derived from mountTag: there is no real exported tree behind the
// fake transport. It only checks that the fixed fid/afid prefix is
// present; uname, aname and n_uname are not parsed.
func handleTattach(req []byte, tag uint16, mountTag string) []byte {
	body := req[p9proto.HeaderSize:]
	if len(body) < 8 {
		return encodeRlerror(tag, errnoBadMessage)
	}
	// fid[4] afid[4] uname[s] aname[s] n_uname[4] follow; this demo
	// handler does not walk past the fixed prefix, so a malformed
	// remainder is not detected.

	qid := p9proto.NewQid(p9proto.QTDIR, 0, rootQidPath(mountTag))

	buf := make([]byte, 0, p9proto.HeaderSize+p9proto.QidSize)
	buf = append(buf, 0, 0, 0, 0)
	buf = append(buf, byte(p9proto.Rattach))
	buf = appendUint16(buf, tag)
	buf = append(buf, qid[:]...)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

// rootQidPath derives a stable, non-zero path value for the fake
// root's Qid from the mount tag, purely so repeated runs against the
// same tag log the same identity.
func rootQidPath(mountTag string) uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for i := 0; i < len(mountTag); i++ {
		h ^= uint64(mountTag[i])
		h *= 1099511628211
	}
	return h
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
