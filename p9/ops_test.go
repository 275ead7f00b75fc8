package p9_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostfs/virtio9pd/p9"
	"github.com/hostfs/virtio9pd/p9proto"
	"github.com/hostfs/virtio9pd/transport"
)

// newTestClient wires a p9.Client to a FakeQueue whose handler decodes
// the request header and dispatches to respond, so each test only
// needs to describe how the fake server answers.
func newTestClient(t *testing.T, respond func(hdr p9proto.Header, body []byte) []byte) *p9.Client {
	t.Helper()
	handler := func(req []byte) []byte {
		hdr, err := p9proto.DecodeHeader(req)
		require.NoError(t, err)
		return respond(hdr, req)
	}
	tp := transport.NewFakeTransport("hostshare", handler)
	queue, err := tp.SetupQueue(context.Background())
	require.NoError(t, err)
	return p9.New(queue, p9proto.DefaultMsize, nil)
}

func TestVersionHandshakeAdoptsSmallerMsize(t *testing.T) {
	// EncodeTversion produces a Tversion-typed message; patch the type
	// byte so the client sees an Rversion reply, matching the shape a
	// real server sends back for this body.
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		resp := p9proto.EncodeTversion(hdr.Tag, 8192, p9proto.Version)
		resp[4] = byte(p9proto.Rversion)
		return resp
	})

	err := c.Version(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 8192, c.Msize())
}

func TestVersionMismatchFails(t *testing.T) {
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		resp := p9proto.EncodeTversion(hdr.Tag, 8192, "9P2000")
		resp[4] = byte(p9proto.Rversion)
		return resp
	})
	err := c.Version(context.Background())
	require.Error(t, err)
}

func TestAttachReturnsRootQid(t *testing.T) {
	wantQid := p9proto.NewQid(p9proto.QTDIR, 1, 42)
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rattach), 0, 0}
		buf = append(buf[:7:7], wantQid[:]...)
		patchSize(buf)
		return buf
	})
	qid, err := c.Attach(context.Background(), "hostshare")
	require.NoError(t, err)
	require.Equal(t, wantQid, qid)
}

func TestWalkIncompleteYieldsWalkIncompleteKind(t *testing.T) {
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		// Only one qid for a two-component walk: partial failure.
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rwalk), 0, 0}
		buf = append(buf[:7:7], 1, 0) // nwqid = 1
		q := p9proto.NewQid(0, 0, 7)
		buf = append(buf, q[:]...)
		patchSize(buf)
		return buf
	})
	qids, err := c.Walk(context.Background(), 0, 1, []string{"a", "b"})
	require.Error(t, err)
	require.Len(t, qids, 1)
	var pe *p9.Error
	require.ErrorAs(t, err, &pe)
	require.Equal(t, p9.KindWalkIncomplete, pe.Kind)
}

func TestReadClampsToMsizeMinusEleven(t *testing.T) {
	var sawCount uint32
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		data := body[7:]
		sawCount = p9ReadCount(data)
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rread), 0, 0}
		buf = append(buf, 0, 0, 0, 0) // empty data blob
		patchSize(buf)
		return buf
	})
	_, err := c.Read(context.Background(), 1, 0, p9proto.DefaultMsize)
	require.NoError(t, err)
	require.EqualValues(t, p9proto.DefaultMsize-(p9proto.HeaderSize+4), sawCount)
}

func TestWriteZeroBytesIsValid(t *testing.T) {
	var sawType p9proto.MsgType
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		sawType = hdr.Type
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rwrite), 0, 0}
		buf = append(buf, 0, 0, 0, 0) // count = 0
		patchSize(buf)
		return buf
	})
	n, err := c.Write(context.Background(), 1, 0, nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, p9proto.Twrite, sawType)
}

func TestWriteClampsToMsize(t *testing.T) {
	var sawLen int
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		// Twrite body: fid[4] offset[8] count[4] data[count]
		sawLen = len(body) - (7 + 4 + 8 + 4)
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rwrite), 0, 0}
		buf = append(buf, byte(sawLen), byte(sawLen>>8), byte(sawLen>>16), byte(sawLen>>24))
		patchSize(buf)
		return buf
	})
	data := make([]byte, p9proto.DefaultMsize+100)
	n, err := c.Write(context.Background(), 1, 0, data)
	require.NoError(t, err)
	require.Equal(t, p9proto.DefaultMsize-(p9proto.HeaderSize+16), sawLen)
	require.EqualValues(t, sawLen, n)
}

func TestServerErrorSurfacesErrno(t *testing.T) {
	c := newTestClient(t, func(hdr p9proto.Header, body []byte) []byte {
		buf := []byte{0, 0, 0, 0, byte(p9proto.Rerror), 0, 0}
		buf = append(buf, 2, 0, 0, 0) // ENOENT
		patchSize(buf)
		return buf
	})
	_, err := c.Attach(context.Background(), "hostshare")
	require.Error(t, err)
	var pe *p9.Error
	require.ErrorAs(t, err, &pe)
	require.Equal(t, p9.KindServer, pe.Kind)
	require.EqualValues(t, 2, pe.Errno)
}

func patchSize(buf []byte) {
	n := uint32(len(buf))
	buf[0] = byte(n)
	buf[1] = byte(n >> 8)
	buf[2] = byte(n >> 16)
	buf[3] = byte(n >> 24)
}

func p9ReadCount(treadBody []byte) uint32 {
	// Tread body: fid[4] offset[8] count[4]
	off := 4 + 8
	return uint32(treadBody[off]) | uint32(treadBody[off+1])<<8 | uint32(treadBody[off+2])<<16 | uint32(treadBody[off+3])<<24
}
