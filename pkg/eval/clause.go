package eval

import (
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// clauseMatch evaluates one clause against a user. allowSegmentMatch is
// false when matching a segment rule's own clauses (segments cannot nest
// segmentMatch per spec). s may be nil only when allowSegmentMatch is
// false, since only segmentMatch needs store access.
func clauseMatch(c ldmodel.Clause, u *ldmodel.User, s store.Store, allowSegmentMatch bool) (bool, error) {
	var matched bool
	if c.Op == ldmodel.OpSegmentMatch {
		if !allowSegmentMatch {
			matched = false
		} else {
			m, err := segmentMatch(c, u, s)
			if err != nil {
				return false, err
			}
			matched = m
		}
	} else {
		v, ok := u.GetAttribute(c.Attribute)
		if !ok {
			matched = false
		} else if arr, isArr := v.ArrayValue(); isArr {
			matched = anyElementMatches(c.Op, arr, c.Values)
		} else {
			matched = anyLiteralMatches(c.Op, v, c.Values)
		}
	}
	return matched != c.Negate, nil
}

func anyLiteralMatches(op ldmodel.Op, v ldmodel.Value, literals []ldmodel.Value) bool {
	for _, lit := range literals {
		if matchOp(op, v, lit) {
			return true
		}
	}
	return false
}

func anyElementMatches(op ldmodel.Op, elems []ldmodel.Value, literals []ldmodel.Value) bool {
	for _, e := range elems {
		if anyLiteralMatches(op, e, literals) {
			return true
		}
	}
	return false
}

// clausesMatch is the AND-composition of a rule's clause list.
func clausesMatch(clauses []ldmodel.Clause, u *ldmodel.User, s store.Store, allowSegmentMatch bool) (bool, error) {
	for _, c := range clauses {
		ok, err := clauseMatch(c, u, s, allowSegmentMatch)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
