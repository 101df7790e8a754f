package store

import (
	"slices"
	"strings"

	"github.com/dshills/dtshconf/internal/config/schema"
)

// ChangeKind classifies a difference between two snapshots.
type ChangeKind uint8

const (
	// Added means the key only exists in the new snapshot.
	Added ChangeKind = iota
	// Modified means the key's value changed.
	Modified
	// Removed means the key only exists in the old snapshot.
	Removed
)

// Change is one key that differs between two snapshots.
type Change struct {
	Key  string
	Kind ChangeKind
	Old  schema.Value
	New  schema.Value
}

// Diff returns the keys whose typed values differ between old and new,
// sorted by key. A nil old snapshot reports every key as added.
func Diff(old, new *Store) []Change {
	var changes []Change

	for _, k := range new.Keys() {
		ne := new.entries[k]
		if old == nil {
			changes = append(changes, Change{Key: k, Kind: Added, New: ne.Value})
			continue
		}
		oe, ok := old.entries[k]
		switch {
		case !ok:
			changes = append(changes, Change{Key: k, Kind: Added, New: ne.Value})
		case !oe.Value.Equal(ne.Value):
			changes = append(changes, Change{Key: k, Kind: Modified, Old: oe.Value, New: ne.Value})
		}
	}

	if old != nil {
		for _, k := range old.Keys() {
			if _, ok := new.entries[k]; !ok {
				changes = append(changes, Change{Key: k, Kind: Removed, Old: old.entries[k].Value})
			}
		}
	}

	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Key, b.Key) })
	return changes
}
