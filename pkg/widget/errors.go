package widget

import "errors"

// Sentinel errors for registry and identity failures.
var (
	// ErrMalformedIdentity is returned when an ObjectID lacks the
	// owner-suffix shape. Fatal to the affected host's initialization;
	// other hosts are unaffected.
	ErrMalformedIdentity = errors.New("widget: malformed identity")

	// ErrDuplicateSeed is returned when seeding an identity that already
	// has a registry entry. Seeding is only valid for fresh identities.
	ErrDuplicateSeed = errors.New("widget: duplicate seed")

	// ErrMissingEntry is returned when a broadcast targets an identity
	// with no registry entry. This is expected under teardown races and
	// is handled as a logged no-op by the registry itself.
	ErrMissingEntry = errors.New("widget: no entry for identity")
)
