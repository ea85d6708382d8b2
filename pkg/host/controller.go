package host

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// State is the lifecycle state of a Controller.
type State uint8

const (
	StateUnattached State = iota
	StateAttached
	StateRemounting
	StateDetached // terminal
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnattached:
		return "Unattached"
	case StateAttached:
		return "Attached"
	case StateRemounting:
		return "Remounting"
	case StateDetached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// Controller lifecycle errors.
var (
	// ErrNoChild is returned when a controller is attached without
	// exactly one synchronizable child node.
	ErrNoChild = errors.New("host: no synchronizable child")

	// ErrNotAttached is returned when a lifecycle transition requires
	// the Attached state.
	ErrNotAttached = errors.New("host: not attached")

	// ErrDetached is returned when a terminally detached controller is
	// reused.
	ErrDetached = errors.New("host: controller is detached")
)

// Child is the synchronized child representation owned by one host: a
// widget.Node that can additionally rebuild itself in place during a
// remount.
type Child interface {
	widget.Node

	// Rebuild tears down and reconstructs the child's visual
	// representation in place. Called while the host swallows input so
	// the reconstruction cannot produce a spurious value-reset broadcast.
	Rebuild() error
}

// DefaultRemountTimeout bounds how long a host swallows input while
// waiting for a child rebuild that never completes.
const DefaultRemountTimeout = 5 * time.Second

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// ObjectID is the widget identity this host synchronizes.
	ObjectID widget.ObjectID

	// Child is the single synchronizable child node.
	Child Child

	// Registry is the session's synchronization registry.
	Registry *widget.Registry

	// Debounce is the quiet period for input coalescing. Zero broadcasts
	// immediately.
	Debounce time.Duration

	// Dispatch hops timer callbacks onto the session event loop. May be
	// nil for direct invocation.
	Dispatch func(func())

	// RemountTimeout overrides DefaultRemountTimeout when positive.
	RemountTimeout time.Duration

	// Logger for diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Controller owns the registry membership of one rendered widget instance.
//
// The state machine is Unattached -> Attached -> (Remounting -> Attached)*
// -> Detached. Detached is terminal; a remount is a Refresh, not a
// Detach/Attach pair, because the in-flight value must survive it.
type Controller struct {
	id       widget.ObjectID
	child    Child
	registry *widget.Registry
	emitter  *Emitter
	dispatch func(func())
	logger   *slog.Logger

	state State

	// remounting swallows local input while the child is rebuilt. It is
	// atomic because the safety timer clears it from its own goroutine.
	remounting atomic.Bool

	remountTimeout time.Duration
	remountMu      sync.Mutex
	remountTimer   *time.Timer
}

// NewController creates a controller from the given configuration.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RemountTimeout
	if timeout <= 0 {
		timeout = DefaultRemountTimeout
	}
	return &Controller{
		id:             cfg.ObjectID,
		child:          cfg.Child,
		registry:       cfg.Registry,
		emitter:        NewEmitter(cfg.Registry, cfg.Debounce, cfg.Dispatch),
		dispatch:       cfg.Dispatch,
		logger:         logger.With("object_id", cfg.ObjectID),
		remountTimeout: timeout,
	}
}

// ObjectID returns the identity this controller synchronizes.
func (c *Controller) ObjectID() widget.ObjectID {
	return c.id
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	if c.remounting.Load() {
		return StateRemounting
	}
	return c.state
}

// Attach validates the host and registers its child with the registry.
// On failure the widget stays visually present but unsynchronized: the
// error is logged once and the controller remains Unattached. Attach is
// not retried by the runtime.
func (c *Controller) Attach() error {
	if c.state == StateDetached {
		return ErrDetached
	}
	if c.state == StateAttached {
		return nil
	}

	if !c.id.Valid() {
		c.logger.Error("initialization failed, widget will not synchronize",
			"error", widget.ErrMalformedIdentity)
		return fmt.Errorf("attach %q: %w", c.id, widget.ErrMalformedIdentity)
	}
	if c.child == nil {
		c.logger.Error("initialization failed, widget will not synchronize",
			"error", ErrNoChild)
		return ErrNoChild
	}

	c.registry.RegisterMember(c.id, c.child)
	c.state = StateAttached
	return nil
}

// Input is the local input notification from this host's child. While the
// host is remounting, inputs are swallowed outright - not queued, not
// forwarded - so the rebuild cannot reset the synchronized value.
func (c *Controller) Input(value any) {
	if c.state != StateAttached {
		return
	}
	if c.remounting.Load() {
		c.logger.Debug("input swallowed during remount")
		return
	}
	c.emitter.Emit(c.child, c.id, value)
}

// SetDebounce changes the quiet period for subsequent inputs. Widgets
// may declare their own window after mounting.
func (c *Controller) SetDebounce(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.emitter.SetDelay(d)
}

// Debounce returns the current quiet period.
func (c *Controller) Debounce() time.Duration {
	return c.emitter.Delay()
}

// Refresh runs the remount protocol in response to an identity-refresh
// signal (the owning cell re-executed and the host's subtree must be
// rebuilt in place):
//
//  1. snapshot the current registry value
//  2. swallow local input
//  3. detach from the registry without clearing the snapshot
//  4. have the child rebuild itself
//  5. reattach
//  6. force-restore the snapshot without notifying anyone
//
// A rebuild failure leaves the host attached with input still swallowed;
// the safety timer clears the swallow flag after the rebuild should have
// completed, so the host cannot swallow input forever.
func (c *Controller) Refresh() error {
	if c.state != StateAttached {
		return ErrNotAttached
	}

	snapshot, hadValue := c.registry.LookupValue(c.id)

	c.remounting.Store(true)
	c.armRemountTimer()

	c.registry.UnregisterMember(c.id, c.child)

	if err := c.child.Rebuild(); err != nil {
		// Stay attached; the safety timer will un-swallow input.
		c.registry.RegisterMember(c.id, c.child)
		c.logger.Warn("child rebuild failed, remount stuck until safety timeout",
			"error", err)
		return fmt.Errorf("remount %q: %w", c.id, err)
	}

	c.registry.RegisterMember(c.id, c.child)

	if hadValue && c.registry.Has(c.id) {
		// A restoration, not a new user action: no sibling updates, no
		// ready signal.
		c.registry.RestoreValue(c.id, snapshot)
	}

	c.disarmRemountTimer()
	c.remounting.Store(false)
	return nil
}

// Detach permanently removes the host: the member is unregistered, any
// pending debounced broadcast is cancelled, and the controller becomes
// terminally Detached.
func (c *Controller) Detach() {
	if c.state == StateDetached {
		return
	}
	if c.state == StateAttached {
		c.registry.UnregisterMember(c.id, c.child)
	}
	c.emitter.Cancel()
	c.disarmRemountTimer()
	c.remounting.Store(false)
	c.state = StateDetached
}

// armRemountTimer starts the bounded safety timer for a remount in
// progress, replacing any previous one.
func (c *Controller) armRemountTimer() {
	c.remountMu.Lock()
	defer c.remountMu.Unlock()
	if c.remountTimer != nil {
		c.remountTimer.Stop()
	}
	c.remountTimer = time.AfterFunc(c.remountTimeout, func() {
		clear := func() {
			if c.remounting.Swap(false) {
				c.logger.Warn("remount did not complete, input swallowing cleared",
					"timeout", c.remountTimeout)
			}
		}
		if c.dispatch != nil {
			c.dispatch(clear)
			return
		}
		clear()
	})
}

// disarmRemountTimer stops the safety timer after a completed remount.
func (c *Controller) disarmRemountTimer() {
	c.remountMu.Lock()
	defer c.remountMu.Unlock()
	if c.remountTimer != nil {
		c.remountTimer.Stop()
		c.remountTimer = nil
	}
}
