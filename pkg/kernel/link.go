package kernel

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-dev/inkwell/pkg/protocol"
	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// DefaultFlushDelay is the ready-batch window used when the config
// leaves it unset.
const DefaultFlushDelay = 50 * time.Millisecond

// Conn is the subset of *websocket.Conn the link needs. Tests supply
// an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// LinkConfig wires a link to its session.
type LinkConfig struct {
	Conn Conn

	// Source reads a widget value by identity. It is only called on
	// the session event loop.
	Source func(id widget.ObjectID) (any, bool)

	// Dispatch hops work onto the session event loop.
	Dispatch func(fn func()) error

	// OnMessage delivers a kernel-originated widget message. Called on
	// the event loop.
	OnMessage func(id widget.ObjectID, message any, buffers [][]byte)

	// OnPurge drops every entry owned by a deleted cell. Called on the
	// event loop.
	OnPurge func(ownerID string) int

	// FlushDelay is the window over which ready notifications
	// coalesce into one batch frame. Zero or negative flushes each
	// notification immediately.
	FlushDelay time.Duration

	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Link batches ready notifications toward the kernel and routes kernel
// frames back onto the session event loop.
type Link struct {
	cfg LinkConfig

	mu      sync.Mutex
	pending []widget.ObjectID
	queued  map[widget.ObjectID]struct{}
	timer   *time.Timer
	closed  bool

	writeMu sync.Mutex
}

// NewLink returns a link ready for Ready calls and a ReadLoop.
func NewLink(cfg LinkConfig) *Link {
	if cfg.FlushDelay == 0 {
		cfg.FlushDelay = DefaultFlushDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Link{
		cfg:    cfg,
		queued: make(map[widget.ObjectID]struct{}),
	}
}

// Ready queues id for the next batch frame. Duplicate identities
// within one window collapse to a single batch member.
func (l *Link) Ready(id widget.ObjectID) {
	if l.cfg.FlushDelay < 0 {
		l.sendBatch([]widget.ObjectID{id})
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if _, ok := l.queued[id]; ok {
		return
	}
	l.queued[id] = struct{}{}
	l.pending = append(l.pending, id)
	if l.timer == nil {
		l.timer = time.AfterFunc(l.cfg.FlushDelay, l.flush)
	}
}

// flush runs on the timer goroutine; the actual value collection hops
// onto the event loop where Source is safe to call.
func (l *Link) flush() {
	l.mu.Lock()
	ids := l.pending
	l.pending = nil
	l.queued = make(map[widget.ObjectID]struct{})
	l.timer = nil
	closed := l.closed
	l.mu.Unlock()
	if closed || len(ids) == 0 {
		return
	}
	if err := l.cfg.Dispatch(func() { l.sendBatch(ids) }); err != nil {
		l.cfg.Logger.Warn("ready batch dropped", "count", len(ids), "err", err)
	}
}

// sendBatch collects current values and writes one batch frame. Runs
// on the event loop.
func (l *Link) sendBatch(ids []widget.ObjectID) {
	batch := &protocol.ReadyBatch{Values: make([]protocol.ReadyValue, 0, len(ids))}
	for _, id := range ids {
		value, ok := l.cfg.Source(id)
		if !ok {
			// The entry was purged between notification and flush.
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			l.cfg.Logger.Error("unencodable widget value", "id", id, "err", err)
			continue
		}
		batch.Values = append(batch.Values, protocol.ReadyValue{
			ObjectID: string(id),
			Value:    raw,
		})
	}
	if len(batch.Values) == 0 {
		return
	}
	l.writeFrame(protocol.FrameReadyBatch, protocol.EncodeReadyBatch(batch))
}

func (l *Link) writeFrame(ft protocol.FrameType, payload []byte) {
	data := protocol.NewFrame(ft, payload).Encode()
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.cfg.Conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	if err := l.cfg.Conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		l.cfg.Logger.Warn("kernel write failed", "type", ft.String(), "err", err)
	}
}

// ReadLoop consumes kernel frames until the connection dies. Widget
// messages and purges are dispatched onto the event loop.
func (l *Link) ReadLoop() {
	defer l.Close()
	for {
		kind, data, err := l.cfg.Conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		f, err := protocol.DecodeFrame(data)
		if err != nil {
			l.cfg.Logger.Warn("undecodable kernel frame", "err", err)
			continue
		}
		l.handleFrame(f)
	}
}

func (l *Link) handleFrame(f *protocol.Frame) {
	switch f.Type {
	case protocol.FrameKernelMessage:
		km, err := protocol.DecodeKernelMessage(f.Payload)
		if err != nil {
			l.cfg.Logger.Warn("undecodable kernel message", "err", err)
			return
		}
		id := widget.ObjectID(km.ObjectID)
		var message any
		if err := json.Unmarshal(km.Message, &message); err != nil {
			l.cfg.Logger.Warn("undecodable kernel message body", "id", id, "err", err)
			return
		}
		buffers := km.Buffers
		if err := l.cfg.Dispatch(func() { l.cfg.OnMessage(id, message, buffers) }); err != nil {
			l.cfg.Logger.Warn("kernel message dropped", "id", id, "err", err)
		}
	case protocol.FramePurge:
		p, err := protocol.DecodePurge(f.Payload)
		if err != nil {
			l.cfg.Logger.Warn("undecodable purge frame", "err", err)
			return
		}
		if err := l.cfg.Dispatch(func() { l.cfg.OnPurge(p.OwnerID) }); err != nil {
			l.cfg.Logger.Warn("purge dropped", "owner", p.OwnerID, "err", err)
		}
	case protocol.FrameControl:
		ctl, err := protocol.DecodeControl(f.Payload)
		if err != nil {
			return
		}
		if ctl.Kind == protocol.ControlPing {
			l.writeFrame(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{
				Kind:      protocol.ControlPong,
				Timestamp: uint64(time.Now().UnixMilli()),
			}))
		}
	default:
		l.cfg.Logger.Warn("unexpected kernel frame", "type", f.Type.String())
	}
}

// Close stops batching and closes the connection. Idempotent.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.pending = nil
	l.mu.Unlock()
	_ = l.cfg.Conn.Close()
}
