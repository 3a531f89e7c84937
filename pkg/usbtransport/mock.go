package usbtransport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/mtpfs/pkg/mtperr"
)

// errConcurrentTransfer is returned by Mock when two bulk transfers are
// attempted simultaneously, the condition property 3 (mutex mutual
// exclusion) must never observe.
var errConcurrentTransfer = errors.New("usbtransport: concurrent bulk transfer detected")

// Mock is an in-memory loopback [Transport] for driving the session
// engine in tests without real hardware. The host side (BulkOut/BulkIn)
// and the simulated-device side (SendToHost/ReceiveFromHost) communicate
// over a pair of unbuffered channels, so a test goroutine can play the
// role of the MTP responder.
type Mock struct {
	toDevice   chan []byte
	fromDevice chan []byte
	interrupt  chan []byte

	maxPacketSize int

	mu     sync.Mutex
	halted map[Endpoint]bool

	inFlight int32 // atomic: 0 or 1, guards against concurrent transfers

	pending []byte // unread tail of the last buffer received from the device side
}

// NewMock returns a Mock ready for use. maxPacketSize is reported by
// MaxPacketSize and feeds the session engine's packet-division probe.
func NewMock(maxPacketSize int) *Mock {
	return &Mock{
		toDevice:      make(chan []byte),
		fromDevice:    make(chan []byte),
		interrupt:     make(chan []byte, 8),
		maxPacketSize: maxPacketSize,
		halted:        make(map[Endpoint]bool),
	}
}

func (m *Mock) enter() bool {
	return atomic.CompareAndSwapInt32(&m.inFlight, 0, 1)
}

func (m *Mock) leave() {
	atomic.StoreInt32(&m.inFlight, 0)
}

func (m *Mock) isHalted(ep Endpoint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted[ep]
}

// Halt marks ep as stalled; the next transfer on that endpoint fails with
// [mtperr.ErrStall] until ClearHalt is called.
func (m *Mock) Halt(ep Endpoint) {
	m.mu.Lock()
	m.halted[ep] = true
	m.mu.Unlock()
}

func (m *Mock) BulkOut(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	if m.isHalted(EndpointBulkOut) {
		return 0, mtperr.ErrStall
	}
	if !m.enter() {
		return 0, errConcurrentTransfer
	}
	defer m.leave()

	cp := append([]byte(nil), buf...)
	select {
	case m.toDevice <- cp:
		return len(buf), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(timeout):
		return 0, mtperr.ErrTimeout
	}
}

func (m *Mock) BulkIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	if m.isHalted(EndpointBulkIn) {
		return 0, mtperr.ErrStall
	}
	if !m.enter() {
		return 0, errConcurrentTransfer
	}
	defer m.leave()

	if len(m.pending) > 0 {
		n := copy(buf, m.pending)
		m.pending = m.pending[n:]
		return n, nil
	}
	select {
	case data := <-m.fromDevice:
		n := copy(buf, data)
		m.pending = data[n:]
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(timeout):
		return 0, mtperr.ErrTimeout
	}
}

func (m *Mock) InterruptIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	select {
	case data := <-m.interrupt:
		return copy(buf, data), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(timeout):
		return 0, mtperr.ErrTimeout
	}
}

func (m *Mock) MaxPacketSize() int { return m.maxPacketSize }

func (m *Mock) ClearHalt(ctx context.Context, ep Endpoint) error {
	m.mu.Lock()
	delete(m.halted, ep)
	m.mu.Unlock()
	return nil
}

func (m *Mock) Close() error {
	return nil
}

// SendToHost queues data to be returned by the next BulkIn call. When
// data is longer than that call's buffer, the rest is returned by the
// BulkIn calls that follow.
func (m *Mock) SendToHost(ctx context.Context, data []byte) error {
	select {
	case m.fromDevice <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveFromHost blocks until the host writes a buffer via BulkOut and
// returns it.
func (m *Mock) ReceiveFromHost(ctx context.Context) ([]byte, error) {
	select {
	case data := <-m.toDevice:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendEvent queues an interrupt-in packet to be returned by the next
// InterruptIn call.
func (m *Mock) SendEvent(data []byte) {
	m.interrupt <- data
}
