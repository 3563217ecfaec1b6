package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullIsImmediatelyReadyAndInitialized(t *testing.T) {
	n := NewNull()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := n.Start(ctx)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.True(t, ready.Wait(waitCtx))
	assert.True(t, n.Initialized())

	n.Stop() // no-op, must not block or panic
}
