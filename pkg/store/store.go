// Package store provides the concurrent feature-store contract and its
// default in-memory implementation, adapted from the teacher's
// core/pkg/store.State: same go-memdb-backed read path, generalized from a
// single flags table to a Kind-parameterized schema covering both flags and
// segments, and from flagd's source-priority merge to the spec's strict
// version-compare-and-set semantics.
package store

import "github.com/flagcore/flagcore-go/pkg/ldmodel"

// Store is the contract every feature-store backend (in-memory, or an
// external Redis/Consul/DynamoDB-backed implementation) satisfies.
type Store interface {
	// Init atomically replaces the entire store contents. Readers never
	// observe a half-applied Init.
	Init(allData map[ldmodel.Kind]map[string]ldmodel.Item) error

	// Get returns the item for (kind, key), or nil if absent or tombstoned.
	Get(kind ldmodel.Kind, key string) (ldmodel.Item, error)

	// All returns every non-deleted item of the given kind.
	All(kind ldmodel.Kind) (map[string]ldmodel.Item, error)

	// Upsert applies item only if no existing item has an equal-or-higher
	// version; returns true if the upsert took effect.
	Upsert(kind ldmodel.Kind, item ldmodel.Item) (bool, error)

	// Delete is a versioned upsert of a tombstone.
	Delete(kind ldmodel.Kind, key string, version int) (bool, error)

	// Initialized reports whether Init has ever succeeded.
	Initialized() bool
}
