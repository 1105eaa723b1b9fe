package mman

import (
	"io"
	"sync"
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/coalwood/mman/internal/align"
	"github.com/coalwood/mman/internal/descpool"
	"github.com/coalwood/mman/internal/pagemem"
)

// managerMagic is a fixed sentinel written at construction and checked by
// the sanity predicate, so a caller that accidentally holds a zero-value
// Manager gets a clear diagnostic instead of silent corruption. Close does
// not clear it.
const managerMagic = 0xcc8e1732ebd80b0b

// descriptorRecordSize is the conceptual on-disk size of one descriptor,
// used only to compute how many pages the embedded descriptor pool
// consumes at the low end of the range. It mirrors the original C
// implementation's 32-byte VAD record; this Go port's actual descpool.Descriptor
// values live in a separate Go slice outside the range (see newManager),
// but the address-space accounting still matches what a byte-faithful
// port would reserve.
const descriptorRecordSize = 32

// Manager is a single, self-contained page-granular virtual memory
// manager over one pre-reserved byte range. Every exported method is
// synchronous and safe for concurrent use; a single per-instance mutex
// guards all state.
type Manager struct {
	mu sync.Mutex

	id  uuid.UUID
	log *slog.Logger

	reservation *pagemem.Reservation
	buf         []byte

	magic uint64
	base  Addr
	end   Addr
	start Addr
	brk   Addr
	mp    Addr

	pool       *descpool.Pool
	regionHead int32
	byStart    *swiss.Map[Addr, int32]

	scrub   bool
	sanity  bool
	lastErr string

	coverage Coverage
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithScrub enables overwriting released bytes with 0xDD before they
// become reusable.
func WithScrub(enabled bool) Option {
	return func(m *Manager) { m.scrub = enabled }
}

// WithSanity enables the full sanity predicate on entry and exit of every
// public operation. It is expensive — O(live region count) — and intended
// for debugging and testing, not production use.
func WithSanity(enabled bool) Option {
	return func(m *Manager) { m.sanity = enabled }
}

// WithLogger attaches a structured logger. If omitted, a Manager logs
// nothing.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Init reserves length bytes of fresh memory from the host OS exactly
// once and returns a Manager over it. length must be a non-zero multiple
// of PageSize.
func Init(length uint64, opts ...Option) (*Manager, error) {
	if length == 0 || !align.Is(length) {
		return nil, newError(KindInvalidParameter, "length %d must be a non-zero multiple of %d", length, PageSize)
	}

	res, err := pagemem.Reserve(length)
	if err != nil {
		return nil, newError(KindInvalidParameter, "reserve %d bytes: %v", length, err)
	}

	base := Addr(0)
	if len(res.Buf) > 0 {
		base = bufAddr(res.Buf)
	}

	m, initErr := newManager(base, res.Buf, opts...)
	if initErr != nil {
		_ = pagemem.Release(res)
		return nil, initErr
	}
	m.reservation = &res
	return m, nil
}

// NewFromBuffer constructs a Manager over a caller-supplied buffer instead
// of a fresh OS reservation. It exists for tests and embeddings that want
// a pure in-memory range (no real mmap) — it changes no invariant and
// skips only the reservation step described in SPEC_FULL.md §2.
func NewFromBuffer(buf []byte, opts ...Option) (*Manager, error) {
	if uint64(len(buf)) == 0 || !align.Is(uint64(len(buf))) {
		return nil, newError(KindInvalidParameter, "buffer length %d must be a non-zero multiple of %d", len(buf), PageSize)
	}
	return newManager(0, buf, opts...)
}

func newManager(base Addr, buf []byte, opts ...Option) (*Manager, error) {
	length := uint64(len(buf))
	end := base + Addr(length)
	if end < base {
		return nil, newError(KindInvalidParameter, "base %s + length %d overflows the address space", base, length)
	}

	pageCount := length / PageSize
	start := align.Up(uint64(base) + pageCount*descriptorRecordSize)
	if Addr(start) >= end {
		return nil, newError(KindInvalidParameter, "range too small to hold a %d-page descriptor pool", pageCount)
	}

	m := &Manager{
		id:         uuid.New(),
		log:        slog.New(slog.NewTextHandler(io.Discard)),
		buf:        buf,
		magic:      managerMagic,
		base:       base,
		end:        end,
		start:      Addr(start),
		brk:        Addr(start),
		mp:         end,
		pool:       descpool.New(int(pageCount)),
		regionHead: descpool.None,
		byStart:    swiss.NewMap[Addr, int32](8),
	}
	for _, opt := range opts {
		opt(m)
	}

	if !m.isSaneLocked() {
		return nil, newError(KindUnexpected, "manager failed sanity check immediately after init: %s", m.lastErr)
	}

	m.coverage.record(BranchInitOK)
	m.log.Debug("mman: initialized", "manager_id", m.id, "base", m.base, "end", m.end, "start", m.start, "pages", pageCount)
	return m, nil
}

// Close releases the underlying OS reservation, if Init (rather than
// NewFromBuffer) created it. It is not one of the five public primitives
// and is not expected to be called while any other goroutine holds a
// reference to memory this manager handed out.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reservation == nil {
		return nil
	}
	err := pagemem.Release(*m.reservation)
	m.reservation = nil
	return err
}

// LastError returns the diagnostic text from the most recent failed
// operation, or the empty string if the most recent operation succeeded.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Coverage returns the manager's branch-coverage recorder, for tests.
func (m *Manager) Coverage() *Coverage {
	return &m.coverage
}

// ID returns the manager's per-instance correlation ID, used only for log
// correlation across multiple independent managers in one process.
func (m *Manager) ID() uuid.UUID {
	return m.id
}

func (m *Manager) setErr(err *Error) *Error {
	m.lastErr = err.Error()
	if err.Kind == KindUnexpected {
		m.log.Error("mman: operation failed", "manager_id", m.id, "kind", err.Kind.String(), "msg", err.Msg)
	} else {
		m.log.Debug("mman: operation failed", "manager_id", m.id, "kind", err.Kind.String(), "msg", err.Msg)
	}
	return err
}

func (m *Manager) clearErr() {
	m.lastErr = ""
}

// bufAddr returns the address of a slice's backing array as an opaque
// Addr. It is the one place outside Map/Unmap that looks at a real
// pointer, and only to name the range Init just reserved.
func bufAddr(buf []byte) Addr {
	return Addr(uintptr(unsafe.Pointer(&buf[0])))
}
