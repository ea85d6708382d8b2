package widget

import (
	"log/slog"
)

// entry is the registry's record for one logical widget.
type entry struct {
	// value is the current logical value, type-erased from the
	// registry's point of view.
	value any

	// members are the currently-mounted instances sharing this identity,
	// in registration order. The registry owns this slice; membership is
	// added on mount and removed on unmount, never implicitly.
	members []Node
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Resolve supplies initial values for identities that are first seen
	// via RegisterMember. May be nil, in which case fresh entries start
	// with a nil value.
	Resolve Resolver

	// Notifier receives Update, Ready, and Incoming notifications.
	// May be nil, in which case notifications are dropped.
	Notifier Notifier

	// Logger for diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records registry activity. May be nil.
	Metrics *Metrics
}

// Registry maps widget identities to their current value and member set.
// It is the single source of truth for "what value does this logical
// widget hold" and "which rendered instances must be kept in sync".
//
// The Registry is not safe for concurrent mutation. It is designed for a
// single-goroutine, event-driven caller: every mutating call happens
// synchronously inside the session event loop's handler for one incoming
// notification. Timer callbacks and kernel pushes re-enter through the
// session's Dispatch.
type Registry struct {
	entries map[ObjectID]*entry

	resolve Resolver
	sink    Notifier
	logger  *slog.Logger
	metrics *Metrics
}

// NewRegistry creates a Registry from the given configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[ObjectID]*entry),
		resolve: cfg.Resolve,
		sink:    cfg.Notifier,
		logger:  logger.With("component", "registry"),
		metrics: cfg.Metrics,
	}
}

// Has reports whether an entry exists for the identity.
func (r *Registry) Has(id ObjectID) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// MemberCount returns the number of mounted members for the identity,
// or zero if no entry exists.
func (r *Registry) MemberCount(id ObjectID) int {
	e, ok := r.entries[id]
	if !ok {
		return 0
	}
	return len(e.members)
}

// Seed creates an entry with zero members, for hydrating values from
// resumed-session state before any node mounts. Returns ErrDuplicateSeed
// if an entry already exists: seeding is only valid for fresh identities,
// never for overwriting a live value.
func (r *Registry) Seed(id ObjectID, value any) error {
	if _, ok := r.entries[id]; ok {
		r.logger.Warn("seed ignored, entry already exists", "object_id", id)
		return ErrDuplicateSeed
	}
	r.entries[id] = &entry{value: value}
	if r.metrics != nil {
		r.metrics.Entries.Inc()
	}
	return nil
}

// RegisterMember adds node to the identity's member set, creating the
// entry if this is the first sighting of the identity. A freshly created
// entry takes its initial value from the configured resolver. Registration
// never broadcasts: a newly mounted member adopts the existing value
// passively rather than triggering a sync round.
func (r *Registry) RegisterMember(id ObjectID, node Node) {
	e, ok := r.entries[id]
	if !ok {
		var initial any
		if r.resolve != nil {
			initial = r.resolve(node)
		}
		e = &entry{value: initial}
		r.entries[id] = e
		if r.metrics != nil {
			r.metrics.Entries.Inc()
		}
	}
	for _, m := range e.members {
		if m == node {
			return
		}
	}
	e.members = append(e.members, node)
}

// UnregisterMember removes node from the identity's member set. It is a
// no-op if the node is not a member: a member may legitimately be removed
// before its visual teardown completes, and double-removal must be
// harmless. The entry itself survives with zero members, since logical
// siblings or a future remount may still need the value; entries are only
// removed by PurgeOwner.
func (r *Registry) UnregisterMember(id ObjectID, node Node) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for i, m := range e.members {
		if m == node {
			e.members = append(e.members[:i], e.members[i+1:]...)
			return
		}
	}
}

// LookupValue returns the current value for the identity and whether an
// entry exists.
func (r *Registry) LookupValue(id ObjectID) (any, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Values returns a copy of every entry's current value, keyed by
// identity. Used to snapshot a session.
func (r *Registry) Values() map[ObjectID]any {
	out := make(map[ObjectID]any, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.value
	}
	return out
}

// PurgeOwner removes every entry whose identity belongs to the owner and
// returns how many were removed. Purging is a logical-identity operation:
// it never touches mounted nodes' visual state.
func (r *Registry) PurgeOwner(ownerID string) int {
	removed := 0
	for id := range r.entries {
		owner, err := id.Owner()
		if err != nil {
			// Malformed ids cannot be registered through the host path,
			// but a seeded one should not wedge the purge.
			continue
		}
		if owner == ownerID {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("purged owner", "owner_id", ownerID, "entries", removed)
		if r.metrics != nil {
			r.metrics.Entries.Sub(float64(removed))
			r.metrics.Purged.Add(float64(removed))
		}
	}
	return removed
}

// BroadcastValue records a new value produced by initiator and propagates
// it: every member except the initiator receives an Update notification,
// then one Ready notification is published to the application boundary.
//
// A broadcast against a missing entry indicates a race between teardown
// and a late-arriving input notification. It is logged and dropped rather
// than treated as a hard error; ErrMissingEntry is returned so strict
// callers can still observe the drop.
func (r *Registry) BroadcastValue(initiator Node, id ObjectID, value any) error {
	e, ok := r.entries[id]
	if !ok {
		r.logger.Warn("broadcast dropped, no entry", "object_id", id)
		if r.metrics != nil {
			r.metrics.DroppedBroadcasts.Inc()
		}
		return ErrMissingEntry
	}

	e.value = value

	if r.sink != nil {
		for _, m := range e.members {
			if m == initiator {
				continue
			}
			r.sink.Publish(Update{ObjectID: id, Value: value, Target: m})
		}
		r.sink.Publish(Ready{ObjectID: id})
	}
	if r.metrics != nil {
		r.metrics.Broadcasts.Inc()
	}
	return nil
}

// RestoreValue force-writes a value into an existing entry without any
// notifications. This is the remount-restoration path: re-applying a
// snapshot is not a new user action, so it must not notify siblings or
// emit a Ready. No-op if the entry no longer exists.
func (r *Registry) RestoreValue(id ObjectID, value any) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.value = value
}

// BroadcastMessage delivers an out-of-band kernel message to every member
// of the identity. This is not part of the value-sync protocol: the entry
// value is untouched and no Ready is emitted. Logged no-op when the entry
// does not exist.
func (r *Registry) BroadcastMessage(id ObjectID, message any, buffers [][]byte) {
	e, ok := r.entries[id]
	if !ok {
		r.logger.Warn("message dropped, no entry", "object_id", id)
		if r.metrics != nil {
			r.metrics.DroppedMessages.Inc()
		}
		return
	}
	if r.sink != nil {
		for _, m := range e.members {
			r.sink.Publish(Incoming{ObjectID: id, Target: m, Message: message, Buffers: buffers})
		}
	}
	if r.metrics != nil {
		r.metrics.Messages.Inc()
	}
}
