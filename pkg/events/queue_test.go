package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldlog"
)

type countingLoggers struct {
	ldlog.Loggers
	warnCount int
}

func newCountingLoggers() *countingLoggers {
	return &countingLoggers{Loggers: ldlog.NewDefaultLoggers()}
}

func (c *countingLoggers) Warnf(format string, args ...interface{}) {
	c.warnCount++
}

func TestQueueDropsBeyondCapacityWithSingleWarning(t *testing.T) {
	log := newCountingLoggers()
	q := newQueue(2, log)

	q.Push(ldevents.IdentifyEvent{CreationDateMs: 1})
	q.Push(ldevents.IdentifyEvent{CreationDateMs: 2})
	q.Push(ldevents.IdentifyEvent{CreationDateMs: 3}) // dropped
	q.Push(ldevents.IdentifyEvent{CreationDateMs: 4}) // still full, no new warning

	require.Equal(t, 2, q.Len())
	assert.Equal(t, 1, log.warnCount)

	drained := q.DrainAll()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, q.Len())

	q.Push(ldevents.IdentifyEvent{CreationDateMs: 5})
	q.Push(ldevents.IdentifyEvent{CreationDateMs: 6})
	q.Push(ldevents.IdentifyEvent{CreationDateMs: 7}) // overflow again

	assert.Equal(t, 2, log.warnCount)
}
