package p9proto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTversionRoundTrip(t *testing.T) {
	buf := EncodeTversion(0xFFFF, DefaultMsize, Version)

	hdr, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, Tversion, hdr.Type)
	require.EqualValues(t, len(buf), hdr.Size)

	// Simulate the server echoing the message back as an Rversion by
	// rewriting only the type byte, since the two share the body shape.
	resp := append([]byte(nil), buf...)
	resp[4] = byte(Rversion)

	msize, version, err := DecodeRversion(resp)
	require.NoError(t, err)
	require.Equal(t, uint32(DefaultMsize), msize)
	require.Equal(t, Version, version)
}

func TestTwalkRoundTrip(t *testing.T) {
	buf, err := EncodeTwalk(1, RootFid, 2, []string{"a", "b.txt"})
	require.NoError(t, err)
	hdr, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, Twalk, hdr.Type)
	require.EqualValues(t, 1, hdr.Tag)
}

func TestTwalkLimits(t *testing.T) {
	tooMany := make([]string, MaxWalkElem+1)
	for i := range tooMany {
		tooMany[i] = "d"
	}
	_, err := EncodeTwalk(1, RootFid, 2, tooMany)
	require.Error(t, err)

	long := strings.Repeat("n", MaxFilenameLen+1)
	_, err = EncodeTwalk(1, RootFid, 2, []string{long})
	require.Error(t, err)
}

func TestTmkdirTruncatesLongName(t *testing.T) {
	long := strings.Repeat("n", MaxFilenameLen+7)
	buf := EncodeTmkdir(1, RootFid, long, 0o755, 0)

	hdr, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.EqualValues(t, len(buf), hdr.Size)
	// dirfid[4] then name[s]: the length prefix must be clamped.
	nameLen := guint16(buf[HeaderSize+4 : HeaderSize+6])
	require.EqualValues(t, MaxFilenameLen, nameLen)
}

func TestRwalkDecodeQids(t *testing.T) {
	q1 := NewQid(QTDIR, 1, 10)
	q2 := NewQid(QTFILE, 1, 11)

	buf := header(Rwalk, 5)
	buf = puint16(buf, 2)
	buf = pqid(buf, q1)
	buf = pqid(buf, q2)
	buf = finish(buf)

	qids, err := DecodeRwalk(buf)
	require.NoError(t, err)
	require.Len(t, qids, 2)
	require.True(t, qids[0].IsDir())
	require.False(t, qids[1].IsDir())
	require.Equal(t, uint64(11), qids[1].Path())
}

func TestDecodeRlerror(t *testing.T) {
	buf := header(Rlerror, 9)
	buf = puint32(buf, 2) // ENOENT
	buf = finish(buf)

	se, err := DecodeRlerror(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(2), se.Errno)
}

func TestDecodeRreaddirEmpty(t *testing.T) {
	buf := header(Rreaddir, 3)
	buf = pdata(buf, nil)
	buf = finish(buf)

	entries, err := DecodeRreaddir(buf)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.Error(t, err)

	_, _, err = DecodeRversion([]byte{0, 0, 0, 0, byte(Rversion), 0, 0})
	require.Error(t, err)
}
