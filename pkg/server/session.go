package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/inkwell-dev/inkwell/pkg/host"
	"github.com/inkwell-dev/inkwell/pkg/protocol"
	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// ReadySink receives ready notifications destined for the kernel.
// kernel.Link implements it.
type ReadySink interface {
	Ready(id widget.ObjectID)
}

// MountOptions declares one widget instance within a session.
type MountOptions struct {
	// Default is the value a fresh registry entry adopts when this
	// instance is its first member.
	Default any

	// Debounce overrides the session's quiet window for this widget.
	// Zero inherits the session default; negative broadcasts with no
	// delay.
	Debounce time.Duration

	// Rebuild re-renders the widget's client subtree during a remount.
	Rebuild func() error
}

type mountedWidget struct {
	node *clientNode
	ctrl *host.Controller
}

// Session is one connected client. All registry mutation happens on
// the goroutine running Run; MountWidget and friends must be called
// from that goroutine (or before Run starts).
type Session struct {
	ID        string
	CreatedAt time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex

	registry *widget.Registry
	widgets  map[string]*mountedWidget

	kernel ReadySink

	// onHello handles the client's opening hello on the event loop.
	// Set by the server before the loop starts.
	onHello   func(*protocol.Hello)
	helloSeen bool

	events   chan *protocol.Frame
	dispatch chan func()
	done     chan struct{}
	closed   atomic.Bool

	lastActive atomic.Int64
	lastSeq    atomic.Uint64

	cfg     SessionConfig
	logger  *slog.Logger
	metrics *SessionMetrics
}

// NewSession wires a session around an established websocket
// connection. A nil conn is allowed; outbound frames are then dropped,
// which keeps the session usable under test.
func NewSession(conn *websocket.Conn, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		widgets:   make(map[string]*mountedWidget),
		events:    make(chan *protocol.Frame, cfg.EventQueueSize),
		dispatch:  make(chan func(), cfg.DispatchQueueSize),
		done:      make(chan struct{}),
		cfg:       cfg,
		logger:    cfg.Logger.With("session", id),
		metrics:   cfg.Metrics,
	}
	s.touch()
	s.registry = widget.NewRegistry(widget.RegistryConfig{
		Resolve:  resolveDeclared,
		Notifier: s,
		Logger:   s.logger,
	})
	return s
}

// Registry exposes the session's value registry for the mounting layer.
func (s *Session) Registry() *widget.Registry { return s.registry }

// AttachKernel routes ready notifications to the given sink. Call
// before Run starts.
func (s *Session) AttachKernel(sink ReadySink) { s.kernel = sink }

// LastActive reports when the client was last heard from.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// Publish implements widget.Notifier. It runs on the event loop as a
// direct consequence of a registry call.
func (s *Session) Publish(n widget.Notification) {
	switch v := n.(type) {
	case widget.Update:
		v.Target.ApplyUpdate(v.Value)
	case widget.Ready:
		if s.kernel != nil {
			s.kernel.Ready(v.ObjectID)
		}
	case widget.Incoming:
		v.Target.ReceiveMessage(v.Message, v.Buffers)
	}
}

// Dispatch queues fn for execution on the event loop. It never blocks;
// a saturated queue returns ErrQueueFull.
func (s *Session) Dispatch(fn func()) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.dispatch <- fn:
		return nil
	default:
		if s.metrics != nil {
			s.metrics.DroppedDispatches.Inc()
		}
		return ErrQueueFull
	}
}

// MountWidget registers one rendered widget instance under handle.
func (s *Session) MountWidget(handle string, id widget.ObjectID, opts MountOptions) (*host.Controller, error) {
	if _, ok := s.widgets[handle]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateHandle, handle)
	}
	node := &clientNode{
		session:  s,
		handle:   handle,
		objectID: id,
		declared: opts.Default,
		rebuild:  opts.Rebuild,
	}
	debounce := s.cfg.Debounce
	if opts.Debounce < 0 {
		debounce = 0
	} else if opts.Debounce > 0 {
		debounce = opts.Debounce
	}
	ctrl := host.NewController(host.ControllerConfig{
		ObjectID: id,
		Child:    node,
		Registry: s.registry,
		Debounce: debounce,
		Dispatch: func(fn func()) {
			if err := s.Dispatch(fn); err != nil {
				s.logger.Warn("dropped debounced broadcast", "handle", handle, "err", err)
			}
		},
		RemountTimeout: s.cfg.RemountTimeout,
		Logger:         s.logger,
	})
	if err := ctrl.Attach(); err != nil {
		return nil, fmt.Errorf("mount %q: %w", handle, err)
	}
	s.widgets[handle] = &mountedWidget{node: node, ctrl: ctrl}
	if s.metrics != nil {
		s.metrics.WidgetsMounted.Inc()
	}
	return ctrl, nil
}

// RemountWidget runs the remount protocol for handle, preserving its
// registry value across the rebuild.
func (s *Session) RemountWidget(handle string) error {
	w, ok := s.widgets[handle]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}
	return w.ctrl.Refresh()
}

// UnmountWidget detaches handle's controller. Its registry entry
// survives for future instances with the same identity.
func (s *Session) UnmountWidget(handle string) error {
	w, ok := s.widgets[handle]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}
	w.ctrl.Detach()
	delete(s.widgets, handle)
	return nil
}

// PurgeOwner drops every registry entry owned by ownerID, typically
// after a notebook cell is deleted.
func (s *Session) PurgeOwner(ownerID string) int {
	return s.registry.PurgeOwner(ownerID)
}

// Resume seeds the registry from a saved snapshot. Values that survive
// in the registry already are skipped with a warning.
func (s *Session) Resume(values map[string]json.RawMessage) {
	for key, raw := range values {
		id := widget.ObjectID(key)
		if !id.Valid() {
			s.logger.Warn("skipping malformed snapshot key", "id", key)
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			s.logger.Warn("skipping undecodable snapshot value", "id", key, "err", err)
			continue
		}
		if err := s.registry.Seed(id, value); err != nil {
			s.logger.Warn("snapshot seed skipped", "id", key, "err", err)
		}
	}
}

// Run drives the event loop until ctx is canceled or Close is called.
func (s *Session) Run(ctx context.Context) {
	var pingC <-chan time.Time
	if s.cfg.PingInterval > 0 {
		t := time.NewTicker(s.cfg.PingInterval)
		defer t.Stop()
		pingC = t.C
	}
	defer s.detachAll()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case f := <-s.events:
			s.handleFrame(f)
		case fn := <-s.dispatch:
			fn()
		case <-pingC:
			s.sendControl(protocol.ControlPing, "")
		}
	}
}

func (s *Session) detachAll() {
	for handle, w := range s.widgets {
		w.ctrl.Detach()
		delete(s.widgets, handle)
	}
}

// Close stops the event loop and closes the connection. Safe to call
// more than once.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) handleFrame(f *protocol.Frame) {
	if s.metrics != nil {
		s.metrics.FramesReceived.Inc()
	}
	switch f.Type {
	case protocol.FrameSetValue:
		sv, err := protocol.DecodeSetValue(f.Payload)
		if err != nil {
			s.logger.Warn("undecodable set-value frame", "err", err)
			s.sendError(protocol.ErrCodeInvalidFrame, err.Error())
			return
		}
		s.handleSetValue(sv)
	case protocol.FrameControl:
		ctl, err := protocol.DecodeControl(f.Payload)
		if err != nil {
			s.logger.Warn("undecodable control frame", "err", err)
			return
		}
		if ctl.Kind == protocol.ControlPing {
			s.sendControl(protocol.ControlPong, "")
		}
	case protocol.FrameHello:
		if s.helloSeen {
			s.logger.Debug("ignoring repeated hello")
			return
		}
		s.helloSeen = true
		h, err := protocol.DecodeHello(f.Payload)
		if err != nil {
			s.logger.Warn("undecodable hello frame", "err", err)
			return
		}
		if s.onHello != nil {
			s.onHello(h)
		}
	default:
		s.logger.Warn("unexpected frame from client", "type", f.Type.String())
	}
}

func (s *Session) handleSetValue(sv *protocol.SetValue) {
	if prev := s.lastSeq.Swap(sv.Seq); sv.Seq != 0 && sv.Seq <= prev {
		s.logger.Debug("out-of-order client edit", "seq", sv.Seq, "prev", prev)
	}
	w, ok := s.widgets[sv.Handle]
	if !ok {
		s.logger.Warn("edit for unknown handle", "handle", sv.Handle)
		s.sendError(protocol.ErrCodeUnknownHandle, sv.Handle)
		return
	}
	if got := widget.ObjectID(sv.ObjectID); got != w.node.objectID {
		s.logger.Warn("edit identity mismatch",
			"handle", sv.Handle, "got", got, "want", w.node.objectID)
		return
	}
	var value any
	if err := json.Unmarshal(sv.Value, &value); err != nil {
		s.logger.Warn("undecodable edit value", "handle", sv.Handle, "err", err)
		s.sendError(protocol.ErrCodeInvalidFrame, err.Error())
		return
	}
	if sv.DebounceMs > 0 {
		w.ctrl.SetDebounce(time.Duration(sv.DebounceMs) * time.Millisecond)
	}
	w.ctrl.Input(value)
}

func (s *Session) sendValueUpdate(handle string, id widget.ObjectID, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("unencodable widget value", "handle", handle, "err", err)
		return
	}
	payload := protocol.EncodeValueUpdate(&protocol.ValueUpdate{
		Handle:   handle,
		ObjectID: string(id),
		Value:    raw,
	})
	s.writeFrame(protocol.FrameValueUpdate, payload)
}

func (s *Session) sendKernelMessage(id widget.ObjectID, message any, buffers [][]byte) {
	raw, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("unencodable kernel message", "id", id, "err", err)
		return
	}
	payload := protocol.EncodeKernelMessage(&protocol.KernelMessage{
		ObjectID: string(id),
		Message:  raw,
		Buffers:  buffers,
	})
	s.writeFrame(protocol.FrameKernelMessage, payload)
}

func (s *Session) sendControl(kind protocol.ControlKind, reason string) {
	payload := protocol.EncodeControl(&protocol.Control{
		Kind:      kind,
		Timestamp: uint64(time.Now().UnixMilli()),
		Reason:    reason,
	})
	s.writeFrame(protocol.FrameControl, payload)
}

func (s *Session) sendError(code protocol.ErrorCode, msg string) {
	payload := protocol.EncodeErrorMessage(&protocol.ErrorMessage{Code: code, Message: msg})
	s.writeFrame(protocol.FrameError, payload)
}

func (s *Session) writeFrame(ft protocol.FrameType, payload []byte) {
	if s.conn == nil || s.closed.Load() {
		return
	}
	if len(payload) > protocol.MaxPayloadSize {
		s.logger.Error("oversized frame dropped", "type", ft.String(), "size", len(payload))
		return
	}
	data := protocol.NewFrame(ft, payload).Encode()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Warn("websocket write failed", "type", ft.String(), "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.FramesSent.Inc()
		s.metrics.BytesSent.Add(float64(len(data)))
	}
}
