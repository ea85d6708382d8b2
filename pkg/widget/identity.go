package widget

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ObjectID identifies a logical widget. It is an opaque token of the form
// "<ownerID>-<suffix>", where ownerID names the cell (owning computation)
// that created the widget. Every entry in the Registry belongs to exactly
// one owner; this is what makes PurgeOwner correct.
type ObjectID string

// Owner returns the owner component of the identity, the part before the
// first delimiter. Returns ErrMalformedIdentity if no delimiter is present
// or either side is empty.
func (id ObjectID) Owner() (string, error) {
	owner, suffix, ok := strings.Cut(string(id), "-")
	if !ok || owner == "" || suffix == "" {
		return "", ErrMalformedIdentity
	}
	return owner, nil
}

// Valid reports whether the identity has the required owner-suffix shape.
func (id ObjectID) Valid() bool {
	_, err := id.Owner()
	return err == nil
}

// String returns the identity as a plain string.
func (id ObjectID) String() string {
	return string(id)
}

// entropy is the shared monotonic source for minted suffixes.
// ULIDs are lexicographically ordered and never repeat within a session,
// which upholds the no-reuse guarantee for identities.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// Mint creates a fresh ObjectID under the given owner.
func Mint(owner string) ObjectID {
	entropyMu.Lock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return ObjectID(owner + "-" + u.String())
}
