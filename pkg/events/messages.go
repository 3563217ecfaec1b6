package events

import "github.com/flagcore/flagcore-go/pkg/ldevents"

// message is the tagged variant the consumer loop selects over: an event
// to dispatch, or one of the four synchronous control messages. Flush,
// FlushUsers, and TestSync carry a completion latch so a caller can block
// until the consumer has actually processed them, instead of racing the
// consumer goroutine.
type message interface{}

type eventMessage struct {
	event ldevents.InputEvent
}

type flushMessage struct {
	done chan struct{}
}

type flushUsersMessage struct {
	done chan struct{}
}

// testSyncMessage is a no-op the consumer acknowledges once it has drained
// everything queued ahead of it; tests use it to wait for quiescence
// without sleeping.
type testSyncMessage struct {
	done chan struct{}
}

type stopMessage struct {
	done chan struct{}
}
