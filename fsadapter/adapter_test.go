package fsadapter_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostfs/virtio9pd/fsadapter"
	"github.com/hostfs/virtio9pd/p9"
	"github.com/hostfs/virtio9pd/p9proto"
	"github.com/hostfs/virtio9pd/transport"
)

// The tests in this file stand up a minimal scripted 9P server: a
// handler that answers whatever message types a given scenario needs,
// using hand-rolled little-endian encoding rather than package
// p9proto's encoder (which only builds T-messages, the client's own
// side of the wire).

func u16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }

func frame(typ p9proto.MsgType, tag uint16, payload []byte) []byte {
	buf := append([]byte{0, 0, 0, 0, byte(typ)}, u16(tag)...)
	buf = append(buf, payload...)
	n := uint32(len(buf))
	buf[0], buf[1], buf[2], buf[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	return buf
}

func qidBytes(q p9proto.Qid) []byte { return q[:] }

func newAdapterFor(t *testing.T, rootQid p9proto.Qid, handler transport.Handler) (*fsadapter.Adapter, *p9.Client) {
	t.Helper()
	tp := transport.NewFakeTransport("hostshare", handler)
	queue, err := tp.SetupQueue(context.Background())
	require.NoError(t, err)
	client := p9.New(queue, p9proto.DefaultMsize, nil)
	a := fsadapter.New(client, "hostshare", rootQid, nil)
	return a, client
}

func decodeHeader(t *testing.T, buf []byte) p9proto.Header {
	t.Helper()
	hdr, err := p9proto.DecodeHeader(buf)
	require.NoError(t, err)
	return hdr
}

func TestOpenExistingFileAndRead(t *testing.T) {
	fileQid := p9proto.NewQid(0, 1, 99)
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			payload := append(u16(1), qidBytes(fileQid)...)
			return frame(p9proto.Rwalk, hdr.Tag, payload)
		case p9proto.Tlopen:
			payload := append(qidBytes(fileQid), u32(0)...)
			return frame(p9proto.Rlopen, hdr.Tag, payload)
		case p9proto.Tread:
			data := []byte("hello")
			payload := append(u32(uint32(len(data))), data...)
			return frame(p9proto.Rread, hdr.Tag, payload)
		case p9proto.Tclunk:
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/b.txt", fsadapter.OReadOnly, 0, 0)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := a.Read(ctx, id, buf, 0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, a.OnClose(ctx, id))
}

func TestOpenCreateNewFile(t *testing.T) {
	newQid := p9proto.NewQid(0, 1, 200)
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	parentQid := p9proto.NewQid(p9proto.QTDIR, 1, 2)

	walkCalls := 0
	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			walkCalls++
			if walkCalls == 1 {
				// Walk to /a/new.txt: not found (0 qids for 2 components).
				return frame(p9proto.Rwalk, hdr.Tag, u16(0))
			}
			// Walk to /a (the parent): succeeds.
			payload := append(u16(1), qidBytes(parentQid)...)
			return frame(p9proto.Rwalk, hdr.Tag, payload)
		case p9proto.Tlcreate:
			payload := append(qidBytes(newQid), u32(0)...)
			return frame(p9proto.Rlcreate, hdr.Tag, payload)
		case p9proto.Tclunk:
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/a/new.txt", fsadapter.OCreat|fsadapter.OWriteOnly, 0o644, 1000)
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestGetdentsEmptyDirectory(t *testing.T) {
	dirQid := p9proto.NewQid(p9proto.QTDIR, 1, 5)
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			payload := append(u16(1), qidBytes(dirQid)...)
			return frame(p9proto.Rwalk, hdr.Tag, payload)
		case p9proto.Tlopen:
			payload := append(qidBytes(dirQid), u32(0)...)
			return frame(p9proto.Rlopen, hdr.Tag, payload)
		case p9proto.Treaddir:
			return frame(p9proto.Rreaddir, hdr.Tag, u32(0)) // empty data blob
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/empty", fsadapter.OReadOnly|fsadapter.ODirectory, 0, 0)
	require.NoError(t, err)

	entries, _, err := a.Getdents(ctx, id, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReadOnUnknownHandleIsBadHandle(t *testing.T) {
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)
	a, _ := newAdapterFor(t, rootQid, func(req []byte) []byte {
		t.Fatalf("no request expected")
		return nil
	})

	_, err := a.Read(context.Background(), 999, make([]byte, 4), 0)
	require.Error(t, err)
	var fe *fsadapter.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, fsadapter.KindBadHandle, fe.Kind)
}

func TestOnCloseUnknownHandleIsNoop(t *testing.T) {
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)
	a, _ := newAdapterFor(t, rootQid, func(req []byte) []byte {
		t.Fatalf("no request expected")
		return nil
	})
	require.NoError(t, a.OnClose(context.Background(), 12345))
}

func TestStatOnlyOpenSkipsLopen(t *testing.T) {
	fileQid := p9proto.NewQid(0, 1, 7)
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	clunkCalls := 0
	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			payload := append(u16(1), qidBytes(fileQid)...)
			return frame(p9proto.Rwalk, hdr.Tag, payload)
		case p9proto.Tgetattr:
			payload := make([]byte, 8+13+4*3+8*15)
			copy(payload[8:], qidBytes(fileQid))
			return frame(p9proto.Rgetattr, hdr.Tag, payload)
		case p9proto.Tclunk:
			clunkCalls++
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		default:
			t.Fatalf("unexpected request type %s (stat-only opens must not lopen)", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/a", fsadapter.OStatOnly, 0, 0)
	require.NoError(t, err)

	st, err := a.Fstat(ctx, id)
	require.NoError(t, err)
	require.Equal(t, fileQid.Path(), st.Ino)

	// Reads require an opened handle, not a merely walked one.
	_, err = a.Read(ctx, id, make([]byte, 4), 0)
	require.Error(t, err)

	require.NoError(t, a.OnClose(ctx, id))
	require.Equal(t, 1, clunkCalls)
}

func TestOpenNotFoundWithoutCreate(t *testing.T) {
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	clunkCalls := 0
	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			return frame(p9proto.Rwalk, hdr.Tag, u16(0)) // nothing resolved
		case p9proto.Tclunk:
			clunkCalls++
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)

	_, err := a.Open(context.Background(), "/missing", fsadapter.OReadOnly, 0, 0)
	require.Error(t, err)
	var fe *fsadapter.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, fsadapter.KindNotFound, fe.Kind)
	// The provisional fid from the failed walk must be released.
	require.Equal(t, 1, clunkCalls)
}

func TestOpenCreateDirectoryUsesMkdir(t *testing.T) {
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)
	dirQid := p9proto.NewQid(p9proto.QTDIR, 1, 30)

	walkCalls := 0
	sawMkdir := false
	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			walkCalls++
			switch walkCalls {
			case 1: // walk to /newdir: not found
				return frame(p9proto.Rwalk, hdr.Tag, u16(0))
			case 2: // clone root as the parent fid
				return frame(p9proto.Rwalk, hdr.Tag, u16(0))
			default: // re-walk to the directory mkdir just made
				payload := append(u16(1), qidBytes(dirQid)...)
				return frame(p9proto.Rwalk, hdr.Tag, payload)
			}
		case p9proto.Tmkdir:
			sawMkdir = true
			return frame(p9proto.Rmkdir, hdr.Tag, qidBytes(dirQid))
		case p9proto.Tclunk:
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		case p9proto.Tlopen:
			t.Fatalf("mkdir-created directories must not be lopen'd")
			return nil
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)

	id, err := a.Open(context.Background(), "/newdir", fsadapter.OCreat|fsadapter.ODirectory, 0o755, 1000)
	require.NoError(t, err)
	require.NotZero(t, id)
	require.True(t, sawMkdir)
}

func TestFutimensPartialTimesIsNoop(t *testing.T) {
	fileQid := p9proto.NewQid(0, 1, 7)
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)

	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			payload := append(u16(1), qidBytes(fileQid)...)
			return frame(p9proto.Rwalk, hdr.Tag, payload)
		case p9proto.Tlopen:
			payload := append(qidBytes(fileQid), u32(0)...)
			return frame(p9proto.Rlopen, hdr.Tag, payload)
		case p9proto.Tsetattr:
			t.Fatalf("a partial futimens must not round-trip")
			return nil
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
			return nil
		}
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/a", fsadapter.OReadWrite, 0, 0)
	require.NoError(t, err)

	mtime := p9proto.Timespec{Sec: 100, Nsec: 5}
	require.NoError(t, a.Futimens(ctx, id, nil, &mtime))
}

func TestFrenameClunksBothDirFids(t *testing.T) {
	rootQid := p9proto.NewQid(p9proto.QTDIR, 1, 1)
	fileQid := p9proto.NewQid(0, 1, 10)
	oldDirQid := p9proto.NewQid(p9proto.QTDIR, 1, 2)
	newDirQid := p9proto.NewQid(p9proto.QTDIR, 1, 3)

	walkCalls := 0
	clunkCalls := 0
	handler := func(req []byte) []byte {
		hdr := decodeHeader(t, req)
		switch hdr.Type {
		case p9proto.Twalk:
			walkCalls++
			switch walkCalls {
			case 1: // open /a/x: two components, two qids
				payload := u16(2)
				payload = append(payload, qidBytes(oldDirQid)...)
				payload = append(payload, qidBytes(fileQid)...)
				return frame(p9proto.Rwalk, hdr.Tag, payload)
			case 2: // walk to old parent /a
				payload := append(u16(1), qidBytes(oldDirQid)...)
				return frame(p9proto.Rwalk, hdr.Tag, payload)
			case 3: // walk to new parent /b
				payload := append(u16(1), qidBytes(newDirQid)...)
				return frame(p9proto.Rwalk, hdr.Tag, payload)
			default:
				t.Fatalf("unexpected walk #%d", walkCalls)
			}
		case p9proto.Tlopen:
			payload := append(qidBytes(fileQid), u32(0)...)
			return frame(p9proto.Rlopen, hdr.Tag, payload)
		case p9proto.Trenameat:
			return frame(p9proto.Rrenameat, hdr.Tag, nil)
		case p9proto.Tclunk:
			clunkCalls++
			return frame(p9proto.Rclunk, hdr.Tag, nil)
		default:
			t.Fatalf("unexpected request type %s", hdr.Type)
		}
		return nil
	}

	a, _ := newAdapterFor(t, rootQid, handler)
	ctx := context.Background()

	id, err := a.Open(ctx, "/a/x", fsadapter.OReadOnly, 0, 0)
	require.NoError(t, err)

	require.NoError(t, a.Frename(ctx, id, "/b/y"))
	require.Equal(t, 2, clunkCalls)
}
