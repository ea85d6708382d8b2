package widget

import (
	"errors"
	"strings"
	"testing"
)

func TestObjectIDOwner(t *testing.T) {
	tests := []struct {
		id      ObjectID
		owner   string
		wantErr bool
	}{
		{"cellA-slider", "cellA", false},
		{"cellA-slider-0", "cellA", false}, // split on first delimiter only
		{"a-b", "a", false},
		{"", "", true},
		{"noDelimiter", "", true},
		{"-suffix", "", true},
		{"owner-", "", true},
	}

	for _, tt := range tests {
		owner, err := tt.id.Owner()
		if tt.wantErr {
			if !errors.Is(err, ErrMalformedIdentity) {
				t.Errorf("%q: err = %v, want ErrMalformedIdentity", tt.id, err)
			}
			if tt.id.Valid() {
				t.Errorf("%q: Valid() = true, want false", tt.id)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.id, err)
			continue
		}
		if owner != tt.owner {
			t.Errorf("%q: owner = %q, want %q", tt.id, owner, tt.owner)
		}
		if !tt.id.Valid() {
			t.Errorf("%q: Valid() = false, want true", tt.id)
		}
	}
}

func TestMintProducesUniqueOwnedIDs(t *testing.T) {
	seen := make(map[ObjectID]bool)
	for i := 0; i < 100; i++ {
		id := Mint("cell7")
		if !strings.HasPrefix(string(id), "cell7-") {
			t.Fatalf("Mint = %q, want cell7- prefix", id)
		}
		if !id.Valid() {
			t.Fatalf("Mint produced invalid id %q", id)
		}
		if owner, _ := id.Owner(); owner != "cell7" {
			t.Fatalf("owner = %q, want cell7", owner)
		}
		if seen[id] {
			t.Fatalf("Mint repeated id %q", id)
		}
		seen[id] = true
	}
}
