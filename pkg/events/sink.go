package events

import "github.com/flagcore/flagcore-go/pkg/ldevents"

// Sink is what the client facade depends on, so offline mode and
// send_events=false can hand it a Null instead of threading an "if
// disabled" branch through every call site that emits an event.
type Sink interface {
	Dispatch(e ldevents.InputEvent)
	Flush()
	FlushUsers()
	TestSync()
	Close()
}

// Null discards every event; used for offline mode and send_events=false.
type Null struct{}

func NewNull() *Null { return &Null{} }

func (Null) Dispatch(ldevents.InputEvent) {}
func (Null) Flush()                       {}
func (Null) FlushUsers()                  {}
func (Null) TestSync()                    {}
func (Null) Close()                       {}
