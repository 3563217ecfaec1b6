package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

func flagAt(key string, version int) ldmodel.Flag {
	return ldmodel.Flag{Key: key, Version: version, On: true}
}

func TestInitThenLowerVersionUpsertIsNoop(t *testing.T) {
	s := NewMemoryStore(nil)
	require.False(t, s.Initialized())

	err := s.Init(map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind: {"f": flagAt("f", 5)},
	})
	require.NoError(t, err)
	assert.True(t, s.Initialized())

	ok, err := s.Upsert(ldmodel.FlagKind, flagAt("f", 4))
	require.NoError(t, err)
	assert.False(t, ok)

	item, err := s.Get(ldmodel.FlagKind, "f")
	require.NoError(t, err)
	assert.Equal(t, 5, item.GetVersion())
}

func TestUpsertHigherVersionWins(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Init(map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind: {"f": flagAt("f", 5)},
	}))

	ok, err := s.Upsert(ldmodel.FlagKind, flagAt("f", 6))
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := s.Get(ldmodel.FlagKind, "f")
	require.NoError(t, err)
	assert.Equal(t, 6, item.GetVersion())
}

func TestEqualVersionUpsertIsNoop(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Init(map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind: {"f": flagAt("f", 5)},
	}))

	ok, err := s.Upsert(ldmodel.FlagKind, flagAt("f", 5))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIsVersionedTombstone(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Init(map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind: {"f": flagAt("f", 5)},
	}))

	ok, err := s.Delete(ldmodel.FlagKind, "f", 6)
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := s.Get(ldmodel.FlagKind, "f")
	require.NoError(t, err)
	assert.Nil(t, item)

	all, err := s.All(ldmodel.FlagKind)
	require.NoError(t, err)
	assert.Empty(t, all)

	// a stale delete behind the current version is a no-op
	ok, err = s.Delete(ldmodel.FlagKind, "f", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingKeyReturnsNilNotError(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Init(map[ldmodel.Kind]map[string]ldmodel.Item{}))

	item, err := s.Get(ldmodel.FlagKind, "nope")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestNotifierPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	n := NewNotifier()
	ch, id := n.Subscribe()
	defer n.Unsubscribe(id)

	n.Publish()
	n.Publish() // second publish while the first notification is unread

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending notification")
	}
}
