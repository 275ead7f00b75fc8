package transport

import (
	"context"
	"sync"
)

// Handler processes one decoded request buffer and returns the
// encoded response to write into the chain's write-only buffer. It is
// the seam the in-memory FakeQueue uses to stand in for an actual 9P
// server running on the host side of the virtio link.
type Handler func(request []byte) (response []byte)

// FakeQueue is an in-memory Queue that completes every submission
// synchronously against a Handler, instead of a real virtqueue. It
// exists for client-engine and adapter tests, and for the
// --fake-transport smoke-test entrypoint; it is not a production
// virtio backend.
type FakeQueue struct {
	mu      sync.Mutex
	handler Handler
	next    uint64
	results map[uint64]fakeResult
}

type fakeResult struct {
	written uint32
	err     error
}

// NewFakeQueue returns a FakeQueue that answers every request with
// handler.
func NewFakeQueue(handler Handler) *FakeQueue {
	return &FakeQueue{handler: handler, results: make(map[uint64]fakeResult)}
}

// Submit runs the chain's request buffer through the fake handler
// immediately and stashes the result for PollCompletion to report. A
// FakeQueue never reports a pending completion: PollCompletion always
// succeeds on the first call for a given handle, matching the driver's
// single-slot usage (exactly one chain is ever outstanding).
func (q *FakeQueue) Submit(chain Chain) (uint64, error) {
	if len(chain.Buffers) != 2 {
		return 0, errBadChain
	}
	req, resp := chain.Buffers[0], chain.Buffers[1]

	out := q.handler(req.Bytes)
	n := copy(resp.Bytes, out)

	q.mu.Lock()
	q.next++
	handle := q.next
	q.results[handle] = fakeResult{written: uint32(n)}
	q.mu.Unlock()

	return handle, nil
}

// PollCompletion returns the result stashed by Submit.
func (q *FakeQueue) PollCompletion(handle uint64) (uint32, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	res, ok := q.results[handle]
	if !ok {
		return 0, false, nil
	}
	delete(q.results, handle)
	return res.written, true, res.err
}

// AllocateDMA returns a plain heap-allocated slice: there is no real
// DMA boundary to honor in the fake.
func (q *FakeQueue) AllocateDMA(size int) ([]byte, error) {
	return make([]byte, size), nil
}

type fakeTransport struct {
	queue   *FakeQueue
	tag     string
	tagLen  int
}

// NewFakeTransport returns a Transport whose single queue is backed by
// handler, and whose device-config window reports mountTag.
func NewFakeTransport(mountTag string, handler Handler) Transport {
	return &fakeTransport{queue: NewFakeQueue(handler), tag: mountTag, tagLen: len(mountTag)}
}

func (t *fakeTransport) LoadConfig(offset uint8, size uint8) uint32 {
	if offset == 0 && size == 2 {
		return uint32(t.tagLen)
	}
	i := int(offset) - 2
	if i < 0 || i >= len(t.tag) {
		return 0
	}
	return uint32(t.tag[i])
}

func (t *fakeTransport) FinalizeFeatures(ctx context.Context) error { return nil }

func (t *fakeTransport) SetupQueue(ctx context.Context) (Queue, error) { return t.queue, nil }

func (t *fakeTransport) RunDevice(ctx context.Context) error { return nil }

type chainError string

func (e chainError) Error() string { return string(e) }

const errBadChain = chainError("transport: chain must have exactly 2 buffers (request, response)")
