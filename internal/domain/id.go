package domain

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Prefixes for locally generated ids. Anything else is a server-assigned id.
const (
	localPrefix     = "local_"
	localSlotPrefix = "local_slot_"
)

// ID identifies an entity on either side of the sync boundary. A local ID was
// generated on this device (guest mode, or before a server round-trip) and
// must be replaced by a server id during reconciliation; a remote ID is
// authoritative as-is.
type ID struct {
	value string
	local bool
}

// NewLocalID generates a device-local subject or record id.
func NewLocalID() ID {
	return ID{value: localPrefix + uuid.NewString(), local: true}
}

// NewLocalSlotID generates a device-local lecture slot id.
func NewLocalSlotID() ID {
	return ID{value: localSlotPrefix + uuid.NewString(), local: true}
}

// RemoteID wraps a server-assigned id.
func RemoteID(v string) ID {
	return ID{value: v}
}

// ParseID reconstructs an ID from its string form, detecting the local prefix.
func ParseID(s string) ID {
	return ID{value: s, local: strings.HasPrefix(s, localPrefix)}
}

// IsLocal reports whether the id still needs adoption of a server id.
func (id ID) IsLocal() bool { return id.local }

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id.value == "" }

// String returns the wire/cache form of the id.
func (id ID) String() string { return id.value }

// MarshalJSON encodes the id as a JSON string. Server-assigned ids are
// opaque, so the value must go through proper string escaping.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes an id, re-detecting locality from the prefix.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ParseID(s)
	return nil
}
