package eval

import (
	"fmt"

	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// NowMs is overridden in tests; production code always uses the real clock.
var NowMs = func() int64 { return nowMsReal() }

// Evaluate interprets flag against user using s to resolve prerequisites
// and segments, returning the evaluation detail plus any synthetic
// prerequisite feature events generated along the way. Never panics:
// malformed flag structure and any other internal failure are recovered at
// the top and surfaced as ERROR{MALFORMED_FLAG} / ERROR{EXCEPTION}.
func Evaluate(flag ldmodel.Flag, u *ldmodel.User, s store.Store) (detail ldmodel.EvaluationDetail, prereqEvents []ldevents.FeatureEvent) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*ldmodel.ErrMalformedFlag); ok {
				detail = offDetailOrError(flag, ldmodel.ErrorMalformedFlag)
				return
			}
			detail = ldmodel.EvaluationDetail{Reason: ldmodel.ErrorReason(ldmodel.ErrorException)}
		}
	}()

	if u == nil || u.Key == "" {
		return ldmodel.EvaluationDetail{Reason: ldmodel.ErrorReason(ldmodel.ErrorUserNotSpecified)}, nil
	}

	if !flag.On {
		return offDetail(flag), nil
	}

	if failedKey, events, ok := evaluatePrerequisites(flag, u, s); !ok {
		prereqEvents = events
		detail = offDetailWithReason(flag, ldmodel.PrerequisiteFailedReason(failedKey))
		return detail, prereqEvents
	} else {
		prereqEvents = events
	}

	if idx, target := matchTarget(flag, u); target {
		return variationDetail(flag, idx, ldmodel.TargetMatchReason()), prereqEvents
	}

	if idx, ruleIdx, ruleID, matched, err := matchRules(flag, u, s); err != nil {
		panic(err)
	} else if matched {
		return variationDetail(flag, idx, ldmodel.RuleMatchReason(ruleIdx, ruleID)), prereqEvents
	}

	idx := resolveSelector(flag.Fallthrough, flag, u)
	return variationDetail(flag, idx, ldmodel.FallthroughReason()), prereqEvents
}

func offDetail(flag ldmodel.Flag) ldmodel.EvaluationDetail {
	return offDetailWithReason(flag, ldmodel.OffReason())
}

func offDetailWithReason(flag ldmodel.Flag, reason ldmodel.Reason) ldmodel.EvaluationDetail {
	if flag.OffVariation == nil {
		return ldmodel.EvaluationDetail{Reason: reason}
	}
	return variationDetail(flag, *flag.OffVariation, reason)
}

func offDetailOrError(flag ldmodel.Flag, kind ldmodel.ErrorKind) ldmodel.EvaluationDetail {
	return ldmodel.EvaluationDetail{Reason: ldmodel.ErrorReason(kind)}
}

// variationDetail looks up variations[idx], panicking (caught by Evaluate's
// recover) if idx is out of range — every selector's output must be a valid
// index per the invariant in spec §3.
func variationDetail(flag ldmodel.Flag, idx int, reason ldmodel.Reason) ldmodel.EvaluationDetail {
	if idx < 0 || idx >= len(flag.Variations) {
		panic(&ldmodel.ErrMalformedFlag{FlagKey: flag.Key, Detail: fmt.Sprintf("variation index %d out of range", idx)})
	}
	i := idx
	return ldmodel.EvaluationDetail{Value: flag.Variations[idx], VariationIndex: &i, Reason: reason}
}

// resolveSelector resolves a VariationOrRollout to a concrete variation
// index, panicking on malformed structure (neither variation nor rollout).
func resolveSelector(sel ldmodel.VariationOrRollout, flag ldmodel.Flag, u *ldmodel.User) int {
	if sel.Variation != nil {
		return *sel.Variation
	}
	if sel.Rollout != nil {
		bucketBy := sel.Rollout.BucketBy
		bucket := bucketUser(flag.Key, flag.Salt, u, bucketBy)
		idx, ok := selectRolloutVariation(sel.Rollout, bucket)
		if !ok {
			panic(&ldmodel.ErrMalformedFlag{FlagKey: flag.Key, Detail: "rollout has no variations"})
		}
		return idx
	}
	panic(&ldmodel.ErrMalformedFlag{FlagKey: flag.Key, Detail: "rule has neither variation nor rollout"})
}

func matchTarget(flag ldmodel.Flag, u *ldmodel.User) (int, bool) {
	for _, t := range flag.Targets {
		for _, v := range t.Values {
			if v == u.Key {
				return t.Variation, true
			}
		}
	}
	return 0, false
}

func matchRules(flag ldmodel.Flag, u *ldmodel.User, s store.Store) (idx int, ruleIdx int, ruleID string, matched bool, err error) {
	for i, rule := range flag.Rules {
		ok, cerr := clausesMatch(rule.Clauses, u, s, true)
		if cerr != nil {
			return 0, 0, "", false, cerr
		}
		if !ok {
			continue
		}
		return resolveSelector(rule.VariationOrRollout, flag, u), i, rule.ID, true, nil
	}
	return 0, 0, "", false, nil
}

// evaluatePrerequisites recursively evaluates each declared prerequisite in
// order, emitting a synthetic feature event per prerequisite evaluated
// (kind feature, PrereqOf = flag.key). Returns ok=false with the first
// failing prerequisite's key the moment one is off, missing, or resolves to
// a variation other than the one required; prerequisite evaluation errors
// count as failures.
func evaluatePrerequisites(flag ldmodel.Flag, u *ldmodel.User, s store.Store) (failedKey string, events []ldevents.FeatureEvent, ok bool) {
	for _, p := range flag.Prerequisites {
		item, err := s.Get(ldmodel.FlagKind, p.Key)
		if err != nil || item == nil {
			return p.Key, events, false
		}
		prereqFlag, isFlag := item.(ldmodel.Flag)
		if !isFlag {
			return p.Key, events, false
		}

		prereqDetail, nestedEvents := Evaluate(prereqFlag, u, s)
		events = append(events, nestedEvents...)

		var version *int
		v := prereqFlag.Version
		version = &v
		prereqOf := flag.Key
		events = append(events, ldevents.FeatureEvent{
			CreationDateMs: NowMs(),
			Key:            p.Key,
			User:           u,
			Value:          prereqDetail.Value,
			Variation:      prereqDetail.VariationIndex,
			Version:        version,
			PrereqOf:       &prereqOf,
			TrackEvents:    prereqFlag.TrackEvents,
			DebugEventsUntilDate: prereqFlag.DebugEventsUntilDate,
			Reason:         &prereqDetail.Reason,
		})

		if !prereqFlag.On {
			return p.Key, events, false
		}
		if prereqDetail.VariationIndex == nil || *prereqDetail.VariationIndex != p.Variation {
			return p.Key, events, false
		}
	}
	return "", events, true
}
