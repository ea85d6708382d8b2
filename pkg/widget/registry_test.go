package widget

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testNode records the updates and messages delivered to one member.
type testNode struct {
	name     string
	updates  []any
	messages []any
	buffers  [][][]byte
}

func (n *testNode) ApplyUpdate(value any) {
	n.updates = append(n.updates, value)
}

func (n *testNode) ReceiveMessage(message any, buffers [][]byte) {
	n.messages = append(n.messages, message)
	n.buffers = append(n.buffers, buffers)
}

// recordingSink captures every notification published by the registry.
type recordingSink struct {
	all []Notification
}

func (s *recordingSink) Publish(n Notification) {
	s.all = append(s.all, n)
	// Deliver member-directed notifications like the session loop would.
	DirectNotifier{}.Publish(n)
}

func (s *recordingSink) readies() []ReadyList {
	var out []ReadyList
	for _, n := range s.all {
		if r, ok := n.(Ready); ok {
			out = append(out, ReadyList{r.ObjectID})
		}
	}
	return out
}

// ReadyList exists to make ready assertions comparable with cmp.
type ReadyList [1]ObjectID

func newTestRegistry(t *testing.T) (*Registry, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	r := NewRegistry(RegistryConfig{
		Notifier: sink,
		Logger:   slog.Default(),
	})
	return r, sink
}

func TestBroadcastSkipsInitiator(t *testing.T) {
	r, sink := newTestRegistry(t)
	n1 := &testNode{name: "n1"}
	n2 := &testNode{name: "n2"}
	n3 := &testNode{name: "n3"}

	const id = ObjectID("cellA-slider")
	r.RegisterMember(id, n1)
	r.RegisterMember(id, n2)
	r.RegisterMember(id, n3)

	if err := r.BroadcastValue(n1, id, 42); err != nil {
		t.Fatalf("BroadcastValue: %v", err)
	}

	if len(n1.updates) != 0 {
		t.Errorf("initiator received %d updates, want 0", len(n1.updates))
	}
	for _, n := range []*testNode{n2, n3} {
		if diff := cmp.Diff([]any{42}, n.updates); diff != "" {
			t.Errorf("%s updates mismatch (-want +got):\n%s", n.name, diff)
		}
	}

	// Exactly one Ready, carrying the id only.
	if got := sink.readies(); len(got) != 1 || got[0][0] != id {
		t.Errorf("readies = %v, want one for %s", got, id)
	}
	if v, ok := r.LookupValue(id); !ok || v != 42 {
		t.Errorf("LookupValue = %v, %v; want 42, true", v, ok)
	}
}

func TestBroadcastMissingEntryIsLenientlyDropped(t *testing.T) {
	r, sink := newTestRegistry(t)
	n := &testNode{name: "n"}

	err := r.BroadcastValue(n, "cellA-gone", "v")
	if !errors.Is(err, ErrMissingEntry) {
		t.Fatalf("err = %v, want ErrMissingEntry", err)
	}
	if len(sink.all) != 0 {
		t.Errorf("dropped broadcast emitted %d notifications, want 0", len(sink.all))
	}
}

func TestSeedThenRegisterAdoptsSeededValue(t *testing.T) {
	sink := &recordingSink{}
	resolverCalls := 0
	r := NewRegistry(RegistryConfig{
		Notifier: sink,
		Resolve: func(Node) any {
			resolverCalls++
			return "resolved"
		},
	})

	const id = ObjectID("cellA-text")
	if err := r.Seed(id, "seeded"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	n := &testNode{name: "n"}
	r.RegisterMember(id, n)

	if v, _ := r.LookupValue(id); v != "seeded" {
		t.Errorf("LookupValue = %v, want seeded", v)
	}
	if resolverCalls != 0 {
		t.Errorf("resolver called %d times for seeded entry, want 0", resolverCalls)
	}
	// Registration never broadcasts.
	if len(sink.all) != 0 {
		t.Errorf("registration emitted %d notifications, want 0", len(sink.all))
	}
}

func TestDuplicateSeedIsRejected(t *testing.T) {
	r, _ := newTestRegistry(t)
	const id = ObjectID("cellA-x")
	if err := r.Seed(id, 1); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := r.Seed(id, 2); !errors.Is(err, ErrDuplicateSeed) {
		t.Fatalf("second Seed err = %v, want ErrDuplicateSeed", err)
	}
	// The live value is untouched.
	if v, _ := r.LookupValue(id); v != 1 {
		t.Errorf("LookupValue = %v, want 1", v)
	}
}

func TestRegisterMemberResolvesInitialValue(t *testing.T) {
	r := NewRegistry(RegistryConfig{
		Resolve: func(n Node) any { return n.(*testNode).name + "-default" },
	})

	n := &testNode{name: "slider"}
	r.RegisterMember("cellB-s", n)

	if v, ok := r.LookupValue("cellB-s"); !ok || v != "slider-default" {
		t.Errorf("LookupValue = %v, %v; want slider-default, true", v, ok)
	}

	// A second member of the same identity adopts the existing value
	// instead of re-resolving.
	n2 := &testNode{name: "other"}
	r.RegisterMember("cellB-s", n2)
	if v, _ := r.LookupValue("cellB-s"); v != "slider-default" {
		t.Errorf("second register changed value to %v", v)
	}
	if got := r.MemberCount("cellB-s"); got != 2 {
		t.Errorf("MemberCount = %d, want 2", got)
	}
}

func TestRegisterMemberIsIdempotentPerNode(t *testing.T) {
	r, _ := newTestRegistry(t)
	n := &testNode{}
	r.RegisterMember("cellA-a", n)
	r.RegisterMember("cellA-a", n)
	if got := r.MemberCount("cellA-a"); got != 1 {
		t.Errorf("MemberCount = %d, want 1", got)
	}
}

func TestUnregisterMemberIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	n := &testNode{}
	const id = ObjectID("cellA-a")
	r.RegisterMember(id, n)

	r.UnregisterMember(id, n)
	r.UnregisterMember(id, n) // second removal must be harmless

	if got := r.MemberCount(id); got != 0 {
		t.Errorf("MemberCount = %d, want 0", got)
	}
	// The entry survives member removal; only PurgeOwner deletes it.
	if !r.Has(id) {
		t.Error("entry removed by unregister; should survive for remounts")
	}
}

func TestUnregisterUnknownIdentityIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.UnregisterMember("cellZ-z", &testNode{})
}

func TestPurgeOwnerRemovesExactlyThatOwner(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, id := range []ObjectID{"A-1", "A-2", "B-1"} {
		if err := r.Seed(id, string(id)); err != nil {
			t.Fatalf("Seed(%s): %v", id, err)
		}
	}

	if got := r.PurgeOwner("A"); got != 2 {
		t.Errorf("PurgeOwner removed %d, want 2", got)
	}
	if r.Has("A-1") || r.Has("A-2") {
		t.Error("owner A entries survived purge")
	}
	if !r.Has("B-1") {
		t.Error("owner B entry removed by purge of A")
	}
}

func TestRestoreValueBypassesNotifications(t *testing.T) {
	r, sink := newTestRegistry(t)
	n := &testNode{}
	const id = ObjectID("cellA-a")
	r.RegisterMember(id, n)
	sink.all = nil

	r.RestoreValue(id, "restored")

	if v, _ := r.LookupValue(id); v != "restored" {
		t.Errorf("LookupValue = %v, want restored", v)
	}
	if len(sink.all) != 0 {
		t.Errorf("RestoreValue emitted %d notifications, want 0", len(sink.all))
	}

	// Restoring a purged identity is a no-op.
	r.PurgeOwner("cellA")
	r.RestoreValue(id, "again")
	if r.Has(id) {
		t.Error("RestoreValue resurrected a purged entry")
	}
}

func TestBroadcastMessageReachesEveryMember(t *testing.T) {
	r, _ := newTestRegistry(t)
	n1 := &testNode{name: "n1"}
	n2 := &testNode{name: "n2"}
	const id = ObjectID("cellA-progress")
	r.RegisterMember(id, n1)
	r.RegisterMember(id, n2)

	bufs := [][]byte{{0x01, 0x02}}
	r.BroadcastMessage(id, "tick", bufs)

	for _, n := range []*testNode{n1, n2} {
		if diff := cmp.Diff([]any{"tick"}, n.messages); diff != "" {
			t.Errorf("%s messages mismatch (-want +got):\n%s", n.name, diff)
		}
		if len(n.buffers) != 1 || len(n.buffers[0]) != 1 {
			t.Errorf("%s buffers = %v, want one buffer set", n.name, n.buffers)
		}
	}

	// Message delivery is not a value update.
	if v, _ := r.LookupValue(id); v != nil {
		t.Errorf("message changed value to %v", v)
	}

	// Missing entry: logged no-op, no panic.
	r.BroadcastMessage("cellZ-none", "tick", nil)
}

func TestValuesSnapshotsEveryEntry(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Seed("cellA-slider", 42); err != nil {
		t.Fatal(err)
	}
	if err := r.Seed("cellB-text", "hi"); err != nil {
		t.Fatal(err)
	}

	got := r.Values()
	want := map[ObjectID]any{"cellA-slider": 42, "cellB-text": "hi"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	// The returned map is a copy; mutating it must not touch the registry.
	got["cellA-slider"] = 0
	if v, _ := r.LookupValue("cellA-slider"); v != 42 {
		t.Errorf("value = %v, want 42", v)
	}
}
