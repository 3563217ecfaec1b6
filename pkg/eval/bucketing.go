package eval

import (
	"crypto/sha1" //nolint:gosec // bucketing hash, not a security boundary
	"encoding/hex"
	"strconv"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// maxBucketHexValue is 15 F's: the divisor that turns the first 15 hex chars of
// the SHA-1 digest into a value in [0,1).
const maxBucketHexValue = 0xFFFFFFFFFFFFFFF // 15 hex F's

// bucketUser computes the deterministic [0,1) bucket for a user under a
// given flag key + salt + bucketBy attribute, per spec: concatenate
// "key.salt.userValue" (optionally ".secondary"), SHA-1, take the first 15
// hex chars as an integer, divide by 0xFFFFFFFFFFFFFFF.
func bucketUser(key, salt string, u *ldmodel.User, bucketBy string) float64 {
	if bucketBy == "" {
		bucketBy = "key"
	}
	v, ok := u.GetAttribute(bucketBy)
	if !ok {
		return 0
	}
	s, ok := bucketableString(v)
	if !ok {
		// bools, non-integer numbers, and non-scalar bucketBy values bucket to 0.0
		return 0
	}

	bucketable := key + "." + salt + "." + s
	if u.Secondary != "" {
		bucketable += "." + u.Secondary
	}

	sum := sha1.Sum([]byte(bucketable)) //nolint:gosec
	hexStr := hex.EncodeToString(sum[:])[:15]
	n, err := strconv.ParseUint(hexStr, 16, 64)
	if err != nil {
		return 0
	}
	return float64(n) / float64(maxBucketHexValue)
}

// bucketableString stringifies only the attribute kinds bucketing accepts:
// strings as-is, numbers only when integer-valued. Bools and fractional
// numbers are excluded so they bucket to 0.0 rather than silently
// stringifying.
func bucketableString(v ldmodel.Value) (string, bool) {
	switch v.Kind() {
	case ldmodel.KindString:
		return v.AsString()
	case ldmodel.KindNumber:
		n, _ := v.NumberValue()
		if n != float64(int64(n)) {
			return "", false
		}
		return v.AsString()
	default:
		return "", false
	}
}

// selectRolloutVariation walks the weighted variations, accumulating
// weight/100000, and returns the first whose cumulative weight exceeds the
// bucket. If the weights are short (malformed) and no bucket matches, the
// last listed variation wins.
func selectRolloutVariation(rollout *ldmodel.Rollout, bucket float64) (int, bool) {
	if len(rollout.Variations) == 0 {
		return 0, false
	}
	var cumulative float64
	for _, wv := range rollout.Variations {
		cumulative += float64(wv.Weight) / 100000.0
		if bucket < cumulative {
			return wv.Variation, true
		}
	}
	return rollout.Variations[len(rollout.Variations)-1].Variation, true
}
