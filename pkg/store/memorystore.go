package store

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

const itemsTable = "items"

// storedItem is the row shape go-memdb indexes; Item is kept boxed so both
// Flag, Segment, and Tombstone can share one table.
type storedItem struct {
	Kind    string
	Key     string
	Version int
	Deleted bool
	Item    ldmodel.Item
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			itemsTable: {
				Name: itemsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Kind"},
								&memdb.StringFieldIndex{Field: "Key"},
							},
						},
					},
					"kind": {
						Name:    "kind",
						Indexer: &memdb.StringFieldIndex{Field: "Kind"},
					},
				},
			},
		},
	}
}

// MemoryStore is the default in-memory Store, a direct generalization of the
// teacher's core/pkg/store.State: one go-memdb instance guarded by a
// sync.RWMutex at the package-level operations, with per-key write
// transactions for Upsert/Delete and one big replace transaction for Init.
type MemoryStore struct {
	mu          sync.RWMutex
	db          *memdb.MemDB
	initialized atomic.Bool
	log         ldlog.Loggers
	Notifier    *Notifier
}

// NewMemoryStore constructs an empty, uninitialized store.
func NewMemoryStore(log ldlog.Loggers) *MemoryStore {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		// schema is a compile-time constant; a failure here is a
		// programming error, not a runtime condition callers can handle.
		panic(err)
	}
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	return &MemoryStore{db: db, log: log, Notifier: NewNotifier()}
}

func (s *MemoryStore) Init(allData map[ldmodel.Kind]map[string]ldmodel.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := s.db.Txn(true)
	if _, err := txn.DeleteAll(itemsTable, "id"); err != nil {
		txn.Abort()
		return err
	}
	for kind, items := range allData {
		for key, item := range items {
			if err := txn.Insert(itemsTable, storedItem{
				Kind: string(kind), Key: key, Version: item.GetVersion(),
				Deleted: item.IsDeleted(), Item: item,
			}); err != nil {
				txn.Abort()
				return err
			}
		}
	}
	txn.Commit()
	s.initialized.Store(true)
	s.log.Debug("feature store initialized")
	s.Notifier.Publish()
	return nil
}

func (s *MemoryStore) Get(kind ldmodel.Kind, key string) (ldmodel.Item, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(itemsTable, "id", string(kind), key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	si := raw.(storedItem)
	if si.Deleted {
		return nil, nil
	}
	return si.Item, nil
}

func (s *MemoryStore) All(kind ldmodel.Kind) (map[string]ldmodel.Item, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(itemsTable, "kind", string(kind))
	if err != nil {
		return nil, err
	}
	out := map[string]ldmodel.Item{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		si := raw.(storedItem)
		if si.Deleted {
			continue
		}
		out[si.Key] = si.Item
	}
	return out, nil
}

// Upsert succeeds only if existing == nil || existing.version < item.version.
func (s *MemoryStore) Upsert(kind ldmodel.Kind, item ldmodel.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := s.db.Txn(true)
	raw, err := txn.First(itemsTable, "id", string(kind), item.GetKey())
	if err != nil {
		txn.Abort()
		return false, err
	}
	if raw != nil {
		existing := raw.(storedItem)
		if existing.Version >= item.GetVersion() {
			txn.Abort()
			return false, nil
		}
	}
	if err := txn.Insert(itemsTable, storedItem{
		Kind: string(kind), Key: item.GetKey(), Version: item.GetVersion(),
		Deleted: item.IsDeleted(), Item: item,
	}); err != nil {
		txn.Abort()
		return false, err
	}
	txn.Commit()
	s.Notifier.Publish()
	return true, nil
}

func (s *MemoryStore) Delete(kind ldmodel.Kind, key string, version int) (bool, error) {
	return s.Upsert(kind, ldmodel.Tombstone{Key: key, Version: version})
}

func (s *MemoryStore) Initialized() bool {
	return s.initialized.Load()
}
