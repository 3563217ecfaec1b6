package ldmodel

// Item is anything the store can hold: a Flag, a Segment, or a Tombstone
// standing in for a deleted key at a given version.
type Item interface {
	GetKey() string
	GetVersion() int
	IsDeleted() bool
}

// Tombstone marks a key as deleted as of Version; Delete is implemented as
// a versioned upsert of a Tombstone so the same compare-and-set rule that
// governs ordinary upserts also governs deletes.
type Tombstone struct {
	Key     string
	Version int
}

func (t Tombstone) GetKey() string  { return t.Key }
func (t Tombstone) GetVersion() int { return t.Version }
func (t Tombstone) IsDeleted() bool { return true }
