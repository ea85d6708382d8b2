package host

import (
	"errors"
	"testing"
	"time"

	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// testChild is a rebuildable widget node for controller tests.
type testChild struct {
	updates    []any
	rebuilds   int
	rebuildErr error
}

func (c *testChild) ApplyUpdate(value any)        { c.updates = append(c.updates, value) }
func (c *testChild) ReceiveMessage(any, [][]byte) {}

func (c *testChild) Rebuild() error {
	c.rebuilds++
	return c.rebuildErr
}

// countingSink counts notifications by kind.
type countingSink struct {
	updates, readies, incoming int
}

func (s *countingSink) Publish(n widget.Notification) {
	switch v := n.(type) {
	case widget.Update:
		s.updates++
		v.Target.ApplyUpdate(v.Value)
	case widget.Ready:
		s.readies++
	case widget.Incoming:
		s.incoming++
	}
}

func newTestController(t *testing.T, id widget.ObjectID) (*Controller, *testChild, *widget.Registry, *countingSink) {
	t.Helper()
	sink := &countingSink{}
	reg := widget.NewRegistry(widget.RegistryConfig{Notifier: sink})
	child := &testChild{}
	ctrl := NewController(ControllerConfig{
		ObjectID: id,
		Child:    child,
		Registry: reg,
	})
	return ctrl, child, reg, sink
}

func TestAttachRegistersMember(t *testing.T) {
	ctrl, _, reg, _ := newTestController(t, "cellA-slider")

	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if ctrl.State() != StateAttached {
		t.Errorf("state = %v, want Attached", ctrl.State())
	}
	if reg.MemberCount("cellA-slider") != 1 {
		t.Errorf("member count = %d, want 1", reg.MemberCount("cellA-slider"))
	}
}

func TestAttachRejectsMalformedIdentity(t *testing.T) {
	ctrl, _, reg, _ := newTestController(t, "noDelimiter")

	err := ctrl.Attach()
	if !errors.Is(err, widget.ErrMalformedIdentity) {
		t.Fatalf("Attach err = %v, want ErrMalformedIdentity", err)
	}
	if ctrl.State() != StateUnattached {
		t.Errorf("state = %v, want Unattached", ctrl.State())
	}
	if reg.Len() != 0 {
		t.Errorf("failed attach created %d entries", reg.Len())
	}

	// The widget degrades silently: input is dropped, not an error.
	ctrl.Input("ignored")
}

func TestAttachRejectsMissingChild(t *testing.T) {
	reg := widget.NewRegistry(widget.RegistryConfig{})
	ctrl := NewController(ControllerConfig{
		ObjectID: "cellA-x",
		Registry: reg,
	})
	if err := ctrl.Attach(); !errors.Is(err, ErrNoChild) {
		t.Fatalf("Attach err = %v, want ErrNoChild", err)
	}
}

func TestInputBroadcastsThroughRegistry(t *testing.T) {
	ctrl, child, reg, sink := newTestController(t, "cellA-slider")
	sibling := &testChild{}
	reg.RegisterMember("cellA-slider", sibling)

	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctrl.Input(7)

	if v, _ := reg.LookupValue("cellA-slider"); v != 7 {
		t.Errorf("registry value = %v, want 7", v)
	}
	// Sibling updated; the initiating child never hears its own input.
	if len(sibling.updates) != 1 || sibling.updates[0] != 7 {
		t.Errorf("sibling updates = %v, want [7]", sibling.updates)
	}
	if len(child.updates) != 0 {
		t.Errorf("initiator received its own update: %v", child.updates)
	}
	if sink.readies != 1 {
		t.Errorf("readies = %d, want 1", sink.readies)
	}
}

func TestRefreshPreservesValueSilently(t *testing.T) {
	ctrl, child, reg, sink := newTestController(t, "cellA-text")
	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctrl.Input("typed by user")
	sink.updates, sink.readies = 0, 0

	if err := ctrl.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if child.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", child.rebuilds)
	}
	if v, ok := reg.LookupValue("cellA-text"); !ok || v != "typed by user" {
		t.Errorf("value after remount = %v, %v; want preserved", v, ok)
	}
	// The restoration is not a new user action.
	if sink.updates != 0 || sink.readies != 0 {
		t.Errorf("remount emitted %d updates, %d readies; want 0, 0",
			sink.updates, sink.readies)
	}
	if ctrl.State() != StateAttached {
		t.Errorf("state = %v, want Attached", ctrl.State())
	}
	if reg.MemberCount("cellA-text") != 1 {
		t.Errorf("member count = %d, want 1", reg.MemberCount("cellA-text"))
	}
}

func TestInputSwallowedWhileRemounting(t *testing.T) {
	sink := &countingSink{}
	reg := widget.NewRegistry(widget.RegistryConfig{Notifier: sink})
	child := &testChild{}

	var ctrl *Controller
	// Simulate an input event arriving mid-rebuild.
	child.rebuildErr = nil
	ctrl = NewController(ControllerConfig{
		ObjectID: "cellA-x",
		Child:    &remountProbe{testChild: child, input: func() { ctrl.Input("spurious") }},
		Registry: reg,
	})
	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctrl.Input("real")
	sink.updates, sink.readies = 0, 0

	if err := ctrl.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if v, _ := reg.LookupValue("cellA-x"); v != "real" {
		t.Errorf("value = %v, want real (mid-rebuild input must be swallowed)", v)
	}
	if sink.readies != 0 {
		t.Errorf("mid-rebuild input produced %d readies, want 0", sink.readies)
	}
}

// remountProbe fires a synthetic input notification from inside Rebuild,
// the way a rebuilding subtree can echo an input event.
type remountProbe struct {
	*testChild
	input func()
}

func (p *remountProbe) Rebuild() error {
	p.input()
	return p.testChild.Rebuild()
}

func TestRefreshFailureIsClearedBySafetyTimer(t *testing.T) {
	sink := &countingSink{}
	reg := widget.NewRegistry(widget.RegistryConfig{Notifier: sink})
	child := &testChild{rebuildErr: errors.New("render backend gone")}
	ctrl := NewController(ControllerConfig{
		ObjectID:       "cellA-x",
		Child:          child,
		Registry:       reg,
		RemountTimeout: 30 * time.Millisecond,
	})
	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := ctrl.Refresh(); err == nil {
		t.Fatal("Refresh succeeded with failing rebuild")
	}
	if ctrl.State() != StateRemounting {
		t.Fatalf("state = %v, want Remounting (stuck)", ctrl.State())
	}
	// Stuck: input is swallowed.
	ctrl.Input("swallowed")
	if sink.readies != 0 {
		t.Fatalf("stuck remount let input through")
	}

	// The safety timer bounds the degenerate case.
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.State() != StateAttached {
		if time.Now().After(deadline) {
			t.Fatal("safety timer never cleared remounting")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctrl.Input("accepted")
	if sink.readies != 1 {
		t.Errorf("input after safety clear produced %d readies, want 1", sink.readies)
	}
}

func TestDetachCancelsPendingDebounce(t *testing.T) {
	sink := &countingSink{}
	reg := widget.NewRegistry(widget.RegistryConfig{Notifier: sink})
	child := &testChild{}
	ctrl := NewController(ControllerConfig{
		ObjectID: "cellA-x",
		Child:    child,
		Registry: reg,
		Debounce: 20 * time.Millisecond,
	})
	if err := ctrl.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	ctrl.Input("in flight")
	ctrl.Detach()

	time.Sleep(60 * time.Millisecond)
	if sink.readies != 0 {
		t.Errorf("debounced broadcast fired after detach")
	}
	if ctrl.State() != StateDetached {
		t.Errorf("state = %v, want Detached", ctrl.State())
	}
	if reg.MemberCount("cellA-x") != 0 {
		t.Errorf("member not unregistered on detach")
	}

	// Detached is terminal.
	if err := ctrl.Attach(); !errors.Is(err, ErrDetached) {
		t.Errorf("re-Attach err = %v, want ErrDetached", err)
	}
	ctrl.Detach() // second detach is harmless
}
