package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/store"
)

func writeSnapshotFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flags.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileLoadsInitialSnapshot(t *testing.T) {
	path := writeSnapshotFile(t, `{"flags":{"f1":{"key":"f1","version":1,"on":true,"variations":[true,false]}},"segments":{}}`)

	s := store.NewMemoryStore(nil)
	f := NewFile(path, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := f.Start(ctx)
	defer f.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.True(t, ready.Wait(waitCtx))
	assert.True(t, f.Initialized())

	item, err := s.Get(ldmodel.FlagKind, "f1")
	require.NoError(t, err)
	require.NotNil(t, item)
}

func TestFileReloadsOnWrite(t *testing.T) {
	path := writeSnapshotFile(t, `{"flags":{},"segments":{}}`)

	s := store.NewMemoryStore(nil)
	f := NewFile(path, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := f.Start(ctx)
	defer f.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.True(t, ready.Wait(waitCtx))

	require.NoError(t, os.WriteFile(path, []byte(`{"flags":{"f2":{"key":"f2","version":1,"on":true,"variations":[true,false]}},"segments":{}}`), 0o644))

	require.Eventually(t, func() bool {
		item, err := s.Get(ldmodel.FlagKind, "f2")
		return err == nil && item != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFileRejectsSchemaViolation(t *testing.T) {
	path := writeSnapshotFile(t, `{"flags":{},"unexpected":true}`)

	s := store.NewMemoryStore(nil)
	f := NewFile(path, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := f.Start(ctx)
	defer f.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.True(t, ready.Wait(waitCtx))
	assert.False(t, f.Initialized())
}
