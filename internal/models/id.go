package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityID identifies a set or exercise instance in one of two disjoint
// namespaces: rows persisted by the server, and entities created locally
// during an edit session that have no server id yet. The two namespaces
// never mix, so a pending id can never be sent to the server by accident.
type EntityID struct {
	value   int64
	pending bool
}

// PersistedID wraps a server-assigned row id.
func PersistedID(v int64) EntityID {
	return EntityID{value: v}
}

// PendingID wraps a locally minted id for a not-yet-saved entity.
func PendingID(v int64) EntityID {
	return EntityID{value: v, pending: true}
}

// IsPending reports whether the id belongs to the pending namespace.
func (id EntityID) IsPending() bool {
	return id.pending
}

// IsZero reports whether the id is the zero value (no entity).
func (id EntityID) IsZero() bool {
	return id == EntityID{}
}

// Persisted returns the server row id and true, or 0 and false for a
// pending or zero id.
func (id EntityID) Persisted() (int64, bool) {
	if id.pending || id.value == 0 {
		return 0, false
	}
	return id.value, true
}

// String renders the id as it appears in API payloads: "123" for a
// persisted row, "new-7" for a pending entity.
func (id EntityID) String() string {
	if id.pending {
		return "new-" + strconv.FormatInt(id.value, 10)
	}
	return strconv.FormatInt(id.value, 10)
}

// MarshalText implements encoding.TextMarshaler so EntityID can key JSON
// maps and appear in serialized session blobs.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EntityID) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseEntityID parses the textual forms produced by String.
func ParseEntityID(s string) (EntityID, error) {
	pending := false
	if rest, ok := strings.CutPrefix(s, "new-"); ok {
		pending = true
		s = rest
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return EntityID{}, fmt.Errorf("invalid entity id %q", s)
	}
	return EntityID{value: v, pending: pending}, nil
}
