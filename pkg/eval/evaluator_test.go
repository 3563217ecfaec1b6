package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/store"
)

func newTestStore(t *testing.T, flags map[string]ldmodel.Flag, segments map[string]ldmodel.Segment) store.Store {
	t.Helper()
	s := store.NewMemoryStore(nil)
	allData := map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind:    {},
		ldmodel.SegmentKind: {},
	}
	for k, f := range flags {
		allData[ldmodel.FlagKind][k] = f
	}
	for k, seg := range segments {
		allData[ldmodel.SegmentKind][k] = seg
	}
	require.NoError(t, s.Init(allData))
	return s
}

func boolVariations() []ldmodel.Value {
	return []ldmodel.Value{ldmodel.Bool(false), ldmodel.Bool(true)}
}

func TestTargetMatch(t *testing.T) {
	zero := 0
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Targets:     []ldmodel.Target{{Variation: 1, Values: []string{"alice"}}},
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)
	u := &ldmodel.User{Key: "alice"}

	detail, _ := Evaluate(flag, u, s)

	v, _ := detail.Value.BoolValue()
	assert.True(t, v)
	assert.Equal(t, ldmodel.ReasonTargetMatch, detail.Reason.Kind)
}

func TestFallthroughRollout(t *testing.T) {
	flag := ldmodel.Flag{
		Key: "f", On: true, Salt: "abc",
		Variations: []ldmodel.Value{ldmodel.String("a"), ldmodel.String("b")},
		Fallthrough: ldmodel.VariationOrRollout{
			Rollout: &ldmodel.Rollout{Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 50000},
				{Variation: 1, Weight: 50000},
			}},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)
	u := &ldmodel.User{Key: "userkey-1"}

	detail, _ := Evaluate(flag, u, s)

	assert.Equal(t, ldmodel.ReasonFallthrough, detail.Reason.Kind)
	require.NotNil(t, detail.VariationIndex)
	assert.Contains(t, []int{0, 1}, *detail.VariationIndex)

	// deterministic: same inputs produce the same bucket every time
	detail2, _ := Evaluate(flag, u, s)
	assert.Equal(t, *detail.VariationIndex, *detail2.VariationIndex)
}

func TestFallthroughRolloutFullWeightRoutesEveryone(t *testing.T) {
	flag := ldmodel.Flag{
		Key: "f", On: true, Salt: "abc",
		Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{
			Rollout: &ldmodel.Rollout{Variations: []ldmodel.WeightedVariation{
				{Variation: 1, Weight: 100000},
			}},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	for _, key := range []string{"a", "b", "c", "d"} {
		detail, _ := Evaluate(flag, &ldmodel.User{Key: key}, s)
		require.NotNil(t, detail.VariationIndex)
		assert.Equal(t, 1, *detail.VariationIndex)
	}
}

func TestPrerequisiteFailed(t *testing.T) {
	zero := 0
	bFlag := ldmodel.Flag{
		Key: "B", On: false, Variations: boolVariations(),
		OffVariation: &zero,
		Fallthrough:  ldmodel.VariationOrRollout{Variation: &zero},
	}
	aFlag := ldmodel.Flag{
		Key: "A", On: true, Variations: boolVariations(),
		OffVariation:  &zero,
		Prerequisites: []ldmodel.Prerequisite{{Key: "B", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: &zero},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"A": aFlag, "B": bFlag}, nil)
	u := &ldmodel.User{Key: "any"}

	detail, events := Evaluate(aFlag, u, s)

	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 0, *detail.VariationIndex) // A's offVariation
	assert.Equal(t, ldmodel.ReasonPrerequisiteFailed, detail.Reason.Kind)
	assert.Equal(t, "B", detail.Reason.PrerequisiteKey)

	require.Len(t, events, 1)
	assert.Equal(t, "B", events[0].Key)
	assert.NotNil(t, events[0].PrereqOf)
	assert.Equal(t, "A", *events[0].PrereqOf)
}

func TestUnknownOperatorDoesNotAbortEvaluation(t *testing.T) {
	one := 1
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{Variation: &one},
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{{Attribute: "color", Op: "bananas", Values: []ldmodel.Value{ldmodel.String("red")}}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
			{
				Clauses: []ldmodel.Clause{{Attribute: "color", Op: ldmodel.OpIn, Values: []ldmodel.Value{ldmodel.String("blue")}}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)
	u := &ldmodel.User{Key: "u", Custom: map[string]ldmodel.Value{"color": ldmodel.String("blue")}}

	detail, _ := Evaluate(flag, u, s)

	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 1, *detail.VariationIndex)
	assert.Equal(t, ldmodel.ReasonRuleMatch, detail.Reason.Kind)
	assert.Equal(t, 1, detail.Reason.RuleIndex)
}

func TestEmptyVariationsIsMalformed(t *testing.T) {
	zero := 0
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: nil,
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	detail, _ := Evaluate(flag, &ldmodel.User{Key: "u"}, s)

	assert.Equal(t, ldmodel.ReasonError, detail.Reason.Kind)
	assert.Equal(t, ldmodel.ErrorMalformedFlag, detail.Reason.ErrorKind)
}

func TestMissingSegmentInSegmentMatchIsClauseFalseNotError(t *testing.T) {
	one := 1
	zero := 0
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
		Rules: []ldmodel.Rule{
			{
				Clauses:            []ldmodel.Clause{{Op: ldmodel.OpSegmentMatch, Values: []ldmodel.Value{ldmodel.String("no-such-segment")}}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	detail, _ := Evaluate(flag, &ldmodel.User{Key: "u"}, s)

	assert.Equal(t, ldmodel.ReasonFallthrough, detail.Reason.Kind)
}

func TestSegmentMatchIncludedUser(t *testing.T) {
	one := 1
	zero := 0
	seg := ldmodel.Segment{Key: "seg", Included: []string{"alice"}}
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
		Rules: []ldmodel.Rule{
			{
				Clauses:            []ldmodel.Clause{{Op: ldmodel.OpSegmentMatch, Values: []ldmodel.Value{ldmodel.String("seg")}}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, map[string]ldmodel.Segment{"seg": seg})

	detail, _ := Evaluate(flag, &ldmodel.User{Key: "alice"}, s)
	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 1, *detail.VariationIndex)

	detail2, _ := Evaluate(flag, &ldmodel.User{Key: "bob"}, s)
	require.NotNil(t, detail2.VariationIndex)
	assert.Equal(t, 0, *detail2.VariationIndex)
}

func TestUserNotSpecified(t *testing.T) {
	zero := 0
	flag := ldmodel.Flag{Key: "f", On: true, Variations: boolVariations(), Fallthrough: ldmodel.VariationOrRollout{Variation: &zero}}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	detail, _ := Evaluate(flag, nil, s)
	assert.Equal(t, ldmodel.ErrorUserNotSpecified, detail.Reason.ErrorKind)

	detail2, _ := Evaluate(flag, &ldmodel.User{}, s)
	assert.Equal(t, ldmodel.ErrorUserNotSpecified, detail2.Reason.ErrorKind)
}

func TestOffReturnsOffVariation(t *testing.T) {
	zero := 0
	flag := ldmodel.Flag{Key: "f", On: false, Variations: boolVariations(), OffVariation: &zero}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	detail, _ := Evaluate(flag, &ldmodel.User{Key: "u"}, s)
	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 0, *detail.VariationIndex)
	assert.Equal(t, ldmodel.ReasonOff, detail.Reason.Kind)
}

func TestNegatedClauseFlipsMatch(t *testing.T) {
	one := 1
	zero := 0
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{{Attribute: "country", Op: ldmodel.OpIn, Values: []ldmodel.Value{ldmodel.String("US")}, Negate: true}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)

	detail, _ := Evaluate(flag, &ldmodel.User{Key: "u", Country: "CA"}, s)
	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 1, *detail.VariationIndex) // CA != US, negated -> true -> rule matches

	detail2, _ := Evaluate(flag, &ldmodel.User{Key: "u", Country: "US"}, s)
	require.NotNil(t, detail2.VariationIndex)
	assert.Equal(t, 0, *detail2.VariationIndex) // US == US, negated -> false -> falls through
}

func TestArrayAttributeMatchesIfAnyElementMatches(t *testing.T) {
	one := 1
	zero := 0
	flag := ldmodel.Flag{
		Key: "f", On: true, Variations: boolVariations(),
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
		Rules: []ldmodel.Rule{
			{
				Clauses:            []ldmodel.Clause{{Attribute: "groups", Op: ldmodel.OpIn, Values: []ldmodel.Value{ldmodel.String("beta")}}},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: &one},
			},
		},
	}
	s := newTestStore(t, map[string]ldmodel.Flag{"f": flag}, nil)
	u := &ldmodel.User{Key: "u", Custom: map[string]ldmodel.Value{
		"groups": ldmodel.Array([]ldmodel.Value{ldmodel.String("alpha"), ldmodel.String("beta")}),
	}}

	detail, _ := Evaluate(flag, u, s)
	require.NotNil(t, detail.VariationIndex)
	assert.Equal(t, 1, *detail.VariationIndex)
}
