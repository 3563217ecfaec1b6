package eval

import (
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// segmentMatch implements the segmentMatch clause operator: for each
// segment key named in the clause's values, a missing segment is skipped
// (not an error); included/excluded lists short-circuit; otherwise segment
// rules are evaluated in order. Any matching segment makes the clause true.
func segmentMatch(c ldmodel.Clause, u *ldmodel.User, s store.Store) (bool, error) {
	for _, v := range c.Values {
		key, ok := v.StringValue()
		if !ok {
			continue
		}
		item, err := s.Get(ldmodel.SegmentKind, key)
		if err != nil {
			return false, err
		}
		if item == nil {
			continue
		}
		seg, ok := item.(ldmodel.Segment)
		if !ok {
			continue
		}
		matched, err := segmentContainsUser(seg, u)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func segmentContainsUser(seg ldmodel.Segment, u *ldmodel.User) (bool, error) {
	for _, k := range seg.Included {
		if k == u.Key {
			return true, nil
		}
	}
	for _, k := range seg.Excluded {
		if k == u.Key {
			return false, nil
		}
	}
	for _, rule := range seg.Rules {
		ok, err := clausesMatch(rule.Clauses, u, nil, false)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if rule.Weight == nil {
			return true, nil
		}
		bucket := bucketUser(seg.Key, seg.Salt, u, rule.BucketBy)
		if bucket < float64(*rule.Weight)/100000.0 {
			return true, nil
		}
	}
	return false, nil
}
