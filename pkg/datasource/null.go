package datasource

import "context"

// Null is the data source used in offline mode and in LDD mode (where a
// relay or sidecar writes directly to the shared feature store and this
// SDK instance never fetches or streams anything itself). It is ready the
// instant it starts.
type Null struct {
	ready *ReadySignal
}

func NewNull() *Null {
	return &Null{}
}

func (n *Null) Start(ctx context.Context) *ReadySignal {
	n.ready = NewReadySignal()
	n.ready.Signal()
	return n.ready
}

func (n *Null) Stop() {}

func (n *Null) Initialized() bool { return true }
