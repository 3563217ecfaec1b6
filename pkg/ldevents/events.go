// Package ldevents holds the analytics-event vocabulary shared between the
// evaluator (which emits feature events, including synthetic prerequisite
// events) and the event pipeline (which queues, summarizes, and flushes
// them). Kept dependency-free of both eval and events to avoid an import
// cycle between the two.
package ldevents

import "github.com/flagcore/flagcore-go/pkg/ldmodel"

// InputEvent is the common interface for anything a caller or the evaluator
// can enqueue onto the pipeline.
type InputEvent interface {
	CreationDate() int64
}

// FeatureEvent records one flag evaluation. Exactly one is emitted per
// Evaluate call by the client facade, even when the result is a default due
// to error; prerequisite evaluations emit their own FeatureEvent with
// PrereqOf set to the dependent flag's key.
type FeatureEvent struct {
	CreationDateMs       int64
	Key                  string
	User                 *ldmodel.User
	Value                ldmodel.Value
	Variation            *int
	Default              ldmodel.Value
	Version              *int
	PrereqOf             *string
	TrackEvents          bool
	DebugEventsUntilDate *int64
	Reason               *ldmodel.Reason
}

func (e FeatureEvent) CreationDate() int64 { return e.CreationDateMs }

// IdentifyEvent records an explicit Identify call.
type IdentifyEvent struct {
	CreationDateMs int64
	User           *ldmodel.User
}

func (e IdentifyEvent) CreationDate() int64 { return e.CreationDateMs }

// CustomEvent records an explicit Track call.
type CustomEvent struct {
	CreationDateMs int64
	Key            string
	User           *ldmodel.User
	Data           ldmodel.Value
	MetricValue    *float64
}

func (e CustomEvent) CreationDate() int64 { return e.CreationDateMs }

// IndexEvent carries full user details the first time a user key is seen
// within a flush-user-keys window, when inline_users_in_events is disabled.
type IndexEvent struct {
	CreationDateMs int64
	User           *ldmodel.User
}

func (e IndexEvent) CreationDate() int64 { return e.CreationDateMs }
