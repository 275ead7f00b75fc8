// Package p9 implements the 9P2000.L client engine: it drives a single
// paravirtualized transport queue, serializing requests from concurrent
// callers, assigning message tags, allocating DMA-visible buffers,
// submitting descriptor chains, polling for completion, and decoding
// responses with strict validation. It exposes one method per 9P
// operation the scheme adapter needs; it does not itself know anything
// about fids' meaning to the adapter, path walking, or handle
// bookkeeping — those live in package fsadapter.
package p9

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aqwari.net/retry"
	"github.com/sirupsen/logrus"

	"github.com/hostfs/virtio9pd/p9proto"
	"github.com/hostfs/virtio9pd/transport"
)

// pollBackoff bounds the cadence of the cooperative poll loop in
// transact: start at a short spin, back off exponentially, cap at a
// millisecond so a slow server doesn't have the driver busy-spinning
// at full tilt the whole time it is outstanding.
var pollBackoff = retry.Exponential(time.Microsecond).Max(time.Millisecond)

// Client is a 9P2000.L client driving a single virtio-9p transport
// queue. The queue only supports one chain in flight at a time, so
// every transact holds the client's own mutex for its whole duration
// rather than trusting callers to be serialized, since the
// single-threaded scheme loop upstream is itself a discipline, not a
// hard guarantee from the Go type system. The negotiated msize is not
// guarded by that mutex: Version must return before other methods are
// called.
type Client struct {
	mu    sync.Mutex
	queue transport.Queue

	tagCounter atomic.Uint32
	fidCounter atomic.Uint32

	msize uint32
	log   *logrus.Entry
}

// New returns a Client driving queue. msize is the value this driver
// will advertise in Tversion; the negotiated value after Version()
// replaces it.
func New(queue transport.Queue, msize uint32, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Client{queue: queue, msize: msize, log: log}
	c.fidCounter.Store(1) // fid 0 is reserved for the root
	c.tagCounter.Store(1)
	return c
}

// Msize returns the currently negotiated maximum message size.
func (c *Client) Msize() uint32 { return c.msize }

// AllocFid returns a fresh, never-before-used fid. Fids are never
// recycled within a session: the allocator is a plain monotonic
// counter, and a session's fid usage never approaches 2^32.
func (c *Client) AllocFid() uint32 {
	return c.fidCounter.Add(1) - 1
}

// RootFid is always 0, the fid bound to the server's root by Attach.
func (c *Client) RootFid() uint32 { return p9proto.RootFid }

func (c *Client) nextTag() uint16 {
	// Tags are purely diagnostic in this single-slot design: the queue
	// never has more than one chain in flight, so correlation between
	// request and response is structural, not tag-based.
	return uint16(c.tagCounter.Add(1) - 1)
}

// transact serializes request under c's single-slot discipline,
// submits it, polls for completion, and validates the response:
// 7 <= size <= written <= msize must hold before any payload is
// interpreted. The returned slice is the response trimmed to its
// declared size.
func (c *Client) transact(ctx context.Context, op string, request []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reqBuf, err := c.queue.AllocateDMA(len(request))
	if err != nil {
		return nil, opErr(op, KindTransport, err)
	}
	copy(reqBuf, request)

	respBuf, err := c.queue.AllocateDMA(int(c.msize))
	if err != nil {
		return nil, opErr(op, KindTransport, err)
	}

	chain := transport.Chain{Buffers: []transport.Buffer{
		{Bytes: reqBuf, Flags: transport.ReadOnly},
		{Bytes: respBuf, Flags: transport.WriteOnly},
	}}

	handle, err := c.queue.Submit(chain)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op}).WithError(err).Debug("9p: submit failed")
		return nil, opErr(op, KindTransport, err)
	}

	written, err := c.pollCompletion(ctx, handle)
	if err != nil {
		return nil, opErr(op, KindTransport, err)
	}

	if written < p9proto.HeaderSize || written > c.msize {
		return nil, opErr(op, KindProtocol, errShortOrOverlong)
	}

	hdr, err := p9proto.DecodeHeader(respBuf)
	if err != nil {
		return nil, opErr(op, KindProtocol, err)
	}
	if hdr.Size < p9proto.HeaderSize || uint32(hdr.Size) > written || hdr.Size > c.msize {
		return nil, opErr(op, KindProtocol, errInconsistentSize)
	}

	resp := respBuf[:hdr.Size]

	if hdr.Type == p9proto.Rerror {
		se, err := p9proto.DecodeRlerror(resp)
		if err != nil {
			return nil, opErr(op, KindProtocol, err)
		}
		c.log.WithFields(logrus.Fields{"op": op, "errno": se.Errno}).Debug("9p: server error")
		return nil, serverErr(op, se.Errno)
	}

	return resp, nil
}

// pollCompletion busy-polls the queue's completion side for handle,
// yielding the CPU between checks with a bounded adaptive backoff.
// It runs with c.mu held: the queue is the client's exclusive
// property, and nothing else may touch it while a chain is
// outstanding.
func (c *Client) pollCompletion(ctx context.Context, handle uint64) (uint32, error) {
	for tries := 0; ; tries++ {
		written, ok, err := c.queue.PollCompletion(handle)
		if err != nil {
			return 0, err
		}
		if ok {
			return written, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(pollBackoff(tries)):
		}
	}
}

type engineError string

func (e engineError) Error() string { return string(e) }

const (
	errShortOrOverlong  engineError = "9p: response written-byte count outside [header, msize]"
	errInconsistentSize engineError = "9p: declared message size inconsistent with written bytes or msize"
)
