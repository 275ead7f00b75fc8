// Package transport names the external collaborators this driver sits
// on top of: the paravirtualized queue primitive, its device-config
// window, and DMA-visible buffer allocation. Device discovery, PCI
// probing, interrupt-vector plumbing, and the physical queue mechanics
// themselves are out of scope for this driver core; this package only
// defines the contract the client engine (package p9) depends on, plus
// an in-memory fake used by tests and by the --fake-transport demo
// entrypoint. Driving a real virtio-9p device requires an
// implementation of these interfaces backed by a PCI/MMIO transport,
// which is not part of this repository.
package transport

import "context"

// DescriptorFlags marks how a buffer within a descriptor chain may be
// accessed by the device.
type DescriptorFlags uint8

const (
	// ReadOnly means the device may read the buffer but not write it
	// (used for the outgoing request buffer).
	ReadOnly DescriptorFlags = 0
	// WriteOnly means the device may write the buffer (used for the
	// incoming response buffer).
	WriteOnly DescriptorFlags = 1
)

// Buffer is one DMA-visible region participating in a descriptor
// chain.
type Buffer struct {
	Bytes []byte
	Flags DescriptorFlags
}

// Chain is an ordered sequence of buffers submitted to a Queue as a
// single request/response unit: by convention, the client engine
// submits exactly two buffers, an outgoing request and an incoming
// response.
type Chain struct {
	Buffers []Buffer
}

// Queue is the single virtqueue this driver's client engine drives.
// The client engine holds the queue as its exclusive property: only
// its transact method ever calls Submit or PollCompletion.
type Queue interface {
	// Submit enqueues chain for the device to process and returns an
	// opaque handle used to poll for its completion.
	Submit(chain Chain) (completionHandle uint64, err error)

	// PollCompletion performs one non-blocking check for whether the
	// chain submitted under handle has completed. ok is false if the
	// device has not yet finished; written is only meaningful when ok
	// is true, and reports how many bytes the device wrote into the
	// chain's write-only buffers.
	PollCompletion(handle uint64) (written uint32, ok bool, err error)

	// AllocateDMA returns a DMA-visible buffer of the given size. The
	// returned slice's backing memory is suitable for use in a Chain.
	AllocateDMA(size int) ([]byte, error)
}

// DeviceConfig exposes the virtio-9p device-config window: a
// little-endian u16 tag_len followed by up to 256 bytes of UTF-8
// mount tag, with no NUL terminator guaranteed. ReadMountTag stops at
// the first NUL byte if one appears before tag_len bytes are consumed.
type DeviceConfig interface {
	LoadConfig(offset uint8, size uint8) uint32
}

// ReadMountTag extracts the mount tag from a virtio-9p device's config
// space. An empty tag is a valid result: the caller is expected to
// synthesize a scheme name from the device identity in that case.
func ReadMountTag(cfg DeviceConfig) string {
	tagLen := int(cfg.LoadConfig(0, 2))
	if tagLen <= 0 || tagLen > 256 {
		return ""
	}
	tag := make([]byte, 0, tagLen)
	for i := 0; i < tagLen; i++ {
		b := byte(cfg.LoadConfig(uint8(2+i), 1))
		if b == 0 {
			break
		}
		tag = append(tag, b)
	}
	return string(tag)
}

// Transport groups the startup sequence a virtio-9p device driver
// performs exactly once: feature negotiation, queue setup, and kicking
// the device into running state. Probing the device and obtaining a
// Transport implementation (PCI capability walk, MMIO mapping,
// interrupt-vector assignment) is out of scope here.
type Transport interface {
	DeviceConfig

	// FinalizeFeatures completes virtio feature negotiation.
	FinalizeFeatures(ctx context.Context) error

	// SetupQueue brings up the single virtqueue this driver uses and
	// returns it.
	SetupQueue(ctx context.Context) (Queue, error)

	// RunDevice signals the device that setup is complete and it may
	// begin processing requests.
	RunDevice(ctx context.Context) error
}
