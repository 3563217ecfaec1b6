package client

import (
	"github.com/flagcore/flagcore-go/pkg/eval"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// AllFlagsStateOptions controls which flags AllFlagsState includes and how
// much detail each carries.
type AllFlagsStateOptions struct {
	ClientSideOnly             bool
	WithReasons                bool
	DetailsOnlyForTrackedFlags bool
}

// FlagState is the per-flag metadata entry in FlagsState.States.
type FlagState struct {
	Version     int
	Variation   *int
	TrackEvents bool
	Reason      *ldmodel.Reason
}

// FlagsState is the client-side bootstrap payload: every requested flag's
// current value plus enough metadata for a front-end SDK to record
// analytics events itself without a further round trip. It is a plain Go
// value: this package defines no JSON encoding for it, so it does not
// marshal to a {flagKey: value, "$flagsState": ..., "$valid": ...} shape.
type FlagsState struct {
	Valid  bool
	Values map[string]ldmodel.Value
	States map[string]FlagState
}

// AllFlagsState evaluates every known flag for user and returns its
// bootstrap snapshot. Unlike Variation/VariationDetail, it does not emit
// feature events — it's a bulk read for a front-end SDK to apply locally,
// not an evaluation whose analytics flagcore's own services should count.
func (c *Client) AllFlagsState(user *ldmodel.User, opts AllFlagsStateOptions) FlagsState {
	state := FlagsState{Values: map[string]ldmodel.Value{}, States: map[string]FlagState{}}

	if user == nil || user.Key == "" || !c.store.Initialized() {
		return state
	}

	all, err := c.store.All(ldmodel.FlagKind)
	if err != nil {
		return state
	}
	state.Valid = true

	for _, item := range all {
		flag, ok := item.(ldmodel.Flag)
		if !ok {
			continue
		}
		if opts.ClientSideOnly && !flag.ClientSide {
			continue
		}

		detail, _ := eval.Evaluate(flag, user, c.store)

		if opts.DetailsOnlyForTrackedFlags && !flag.TrackEvents && flag.DebugEventsUntilDate == nil {
			state.Values[flag.Key] = detail.Value
			continue
		}

		entry := FlagState{
			Version:     flag.Version,
			Variation:   detail.VariationIndex,
			TrackEvents: flag.TrackEvents,
		}
		if opts.WithReasons || selectorTrackReason(flag, detail.Reason) {
			reason := detail.Reason
			entry.Reason = &reason
		}

		state.Values[flag.Key] = detail.Value
		state.States[flag.Key] = entry
	}

	return state
}
