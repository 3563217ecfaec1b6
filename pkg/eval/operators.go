// Package eval is the pure flag-rule interpreter: Evaluate takes a flag, a
// user, and a store, and returns an EvaluationDetail plus any prerequisite
// feature events generated along the way. No I/O, no locking beyond what
// the store exposes for reads — adapted in spirit from the teacher's
// JsonEvaluator.ResolveXxxValue methods (pkg/eval/json_evaluator_test.go),
// generalized from flagd's JSON-Logic `rules` field to the spec's
// targets/rules/rollout/prerequisite/segment rule structure.
package eval

import (
	"regexp"
	"strings"
	"time"

	"github.com/launchdarkly/go-semver"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// matchOp applies op to (userValue, literal). Unknown operators return
// false without raising — evaluation continues to the next rule rather
// than aborting.
func matchOp(op ldmodel.Op, a, b ldmodel.Value) bool {
	switch op {
	case ldmodel.OpIn:
		return a.Equal(b)
	case ldmodel.OpStartsWith:
		return stringOp(a, b, strings.HasPrefix)
	case ldmodel.OpEndsWith:
		return stringOp(a, b, strings.HasSuffix)
	case ldmodel.OpContains:
		return stringOp(a, b, strings.Contains)
	case ldmodel.OpMatches:
		return matchesOp(a, b)
	case ldmodel.OpLessThan:
		return numericOp(a, b, func(x, y float64) bool { return x < y })
	case ldmodel.OpLessThanOrEqual:
		return numericOp(a, b, func(x, y float64) bool { return x <= y })
	case ldmodel.OpGreaterThan:
		return numericOp(a, b, func(x, y float64) bool { return x > y })
	case ldmodel.OpGreaterThanOrEqual:
		return numericOp(a, b, func(x, y float64) bool { return x >= y })
	case ldmodel.OpBefore:
		return dateOp(a, b, func(x, y time.Time) bool { return x.Before(y) })
	case ldmodel.OpAfter:
		return dateOp(a, b, func(x, y time.Time) bool { return x.After(y) })
	case ldmodel.OpSemVerEqual:
		return semVerOp(a, b, func(c int) bool { return c == 0 })
	case ldmodel.OpSemVerLessThan:
		return semVerOp(a, b, func(c int) bool { return c < 0 })
	case ldmodel.OpSemVerGreaterThan:
		return semVerOp(a, b, func(c int) bool { return c > 0 })
	default:
		// OpSegmentMatch is handled by the caller (it needs the store);
		// anything else is a wire string we don't recognize.
		return false
	}
}

func stringOp(a, b ldmodel.Value, f func(s, prefix string) bool) bool {
	as, ok := a.StringValue()
	if !ok {
		return false
	}
	bs, ok := b.StringValue()
	if !ok {
		return false
	}
	return f(as, bs)
}

func matchesOp(a, b ldmodel.Value) bool {
	as, ok := a.StringValue()
	if !ok {
		return false
	}
	bs, ok := b.StringValue()
	if !ok {
		return false
	}
	re, err := regexp.Compile(bs)
	if err != nil {
		return false
	}
	return re.MatchString(as)
}

func numericOp(a, b ldmodel.Value, f func(x, y float64) bool) bool {
	an, ok := a.NumberValue()
	if !ok {
		return false
	}
	bn, ok := b.NumberValue()
	if !ok {
		return false
	}
	return f(an, bn)
}

// parseTimeValue accepts either an RFC-3339 string or an epoch-ms number.
func parseTimeValue(v ldmodel.Value) (time.Time, bool) {
	if s, ok := v.StringValue(); ok {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if n, ok := v.NumberValue(); ok {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Time{}, false
}

func dateOp(a, b ldmodel.Value, f func(x, y time.Time) bool) bool {
	at, ok := parseTimeValue(a)
	if !ok {
		return false
	}
	bt, ok := parseTimeValue(b)
	if !ok {
		return false
	}
	return f(at, bt)
}

// parseSemVer accepts a version string, retrying up to twice with ".0"
// appended to fill a missing minor or patch component (e.g. "2" -> "2.0" ->
// "2.0.0"), per spec.
func parseSemVer(s string) (semver.Version, bool) {
	v, err := semver.Parse(s)
	if err == nil {
		return v, true
	}
	for i := 0; i < 2; i++ {
		s = s + ".0"
		v, err = semver.Parse(s)
		if err == nil {
			return v, true
		}
	}
	return semver.Version{}, false
}

func semVerOp(a, b ldmodel.Value, cmp func(c int) bool) bool {
	as, ok := a.StringValue()
	if !ok {
		return false
	}
	bs, ok := b.StringValue()
	if !ok {
		return false
	}
	av, ok := parseSemVer(as)
	if !ok {
		return false
	}
	bv, ok := parseSemVer(bs)
	if !ok {
		return false
	}
	return cmp(av.ComparePrecedence(bv))
}
