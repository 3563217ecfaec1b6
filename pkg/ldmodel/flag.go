// Package ldmodel holds the flag/segment/user/rule data model described by
// the evaluation spec. Flags and segments are created and mutated only by
// the data source (pkg/datasource); the evaluator (pkg/eval) only reads
// them. Values are replaced wholesale on update, never edited in place.
package ldmodel

// Kind distinguishes the two item namespaces the store holds.
type Kind string

const (
	FlagKind    Kind = "flags"
	SegmentKind Kind = "segments"
)

// Flag is the full rule structure for one feature flag.
type Flag struct {
	Key                  string         `json:"key"`
	Version              int            `json:"version"`
	On                   bool           `json:"on"`
	Variations           []Value        `json:"variations"`
	OffVariation         *int           `json:"offVariation,omitempty"`
	Fallthrough          VariationOrRollout `json:"fallthrough"`
	Targets              []Target       `json:"targets,omitempty"`
	Rules                []Rule         `json:"rules,omitempty"`
	Prerequisites        []Prerequisite `json:"prerequisites,omitempty"`
	Salt                 string         `json:"salt"`
	TrackEvents          bool           `json:"trackEvents,omitempty"`
	DebugEventsUntilDate *int64         `json:"debugEventsUntilDate,omitempty"`
	ClientSide           bool           `json:"clientSide,omitempty"`
}

// GetKey and GetVersion satisfy store.Item so Flag can be stored generically.
func (f Flag) GetKey() string   { return f.Key }
func (f Flag) GetVersion() int  { return f.Version }
func (f Flag) IsDeleted() bool  { return false }

// Target is one fixed-variation assignment for a list of user keys.
type Target struct {
	Variation int      `json:"variation"`
	Values    []string `json:"values"`
}

// Prerequisite names another flag whose variation must match for this flag
// to proceed past prerequisite evaluation.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// Rule is an ordered, AND-composed set of clauses plus a variation selector.
type Rule struct {
	ID      string   `json:"id,omitempty"`
	Clauses []Clause `json:"clauses"`
	VariationOrRollout
}

// VariationOrRollout is either a fixed variation index or a weighted
// rollout, used both by Rule and by Flag.Fallthrough. Exactly one of
// Variation/Rollout should be set; neither set is malformed. TrackReason
// forces a reason onto events produced by this specific selector even when
// the caller didn't ask for withReasons.
type VariationOrRollout struct {
	Variation   *int     `json:"variation,omitempty"`
	Rollout     *Rollout `json:"rollout,omitempty"`
	TrackReason bool     `json:"trackReason,omitempty"`
}

// Rollout is a weighted selection across variations, bucketed per user.
type Rollout struct {
	Variations []WeightedVariation `json:"variations"`
	BucketBy   string              `json:"bucketBy,omitempty"`
}

// WeightedVariation is one entry of a Rollout; Weight is out of 100000.
type WeightedVariation struct {
	Variation int `json:"variation"`
	Weight    int `json:"weight"`
}

// Op is a clause operator, kept as its wire string. A string that is not
// one of the constants below decodes unchanged and never matches: the
// evaluator treats the clause as false rather than raising an error.
type Op string

const (
	OpIn                   Op = "in"
	OpStartsWith           Op = "startsWith"
	OpEndsWith             Op = "endsWith"
	OpContains             Op = "contains"
	OpMatches              Op = "matches"
	OpLessThan             Op = "lessThan"
	OpLessThanOrEqual      Op = "lessThanOrEqual"
	OpGreaterThan          Op = "greaterThan"
	OpGreaterThanOrEqual   Op = "greaterThanOrEqual"
	OpBefore               Op = "before"
	OpAfter                Op = "after"
	OpSemVerEqual          Op = "semVerEqual"
	OpSemVerLessThan       Op = "semVerLessThan"
	OpSemVerGreaterThan    Op = "semVerGreaterThan"
	OpSegmentMatch         Op = "segmentMatch"
	OpUnknown              Op = ""
)

// Clause is one AND-term of a Rule or segment rule.
type Clause struct {
	Attribute string  `json:"attribute"`
	Op        Op      `json:"op"`
	Values    []Value `json:"values"`
	Negate    bool    `json:"negate,omitempty"`
}

// Segment is a named user cohort referenced by flags via segmentMatch.
type Segment struct {
	Key      string        `json:"key"`
	Version  int           `json:"version"`
	Included []string      `json:"included,omitempty"`
	Excluded []string      `json:"excluded,omitempty"`
	Rules    []SegmentRule `json:"rules,omitempty"`
	Salt     string        `json:"salt"`
}

func (s Segment) GetKey() string  { return s.Key }
func (s Segment) GetVersion() int { return s.Version }
func (s Segment) IsDeleted() bool { return false }

// SegmentRule is one clause-list (no nested segmentMatch) with an optional
// bucketing weight, evaluated in declared order within a Segment.
type SegmentRule struct {
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"`
	BucketBy string   `json:"bucketBy,omitempty"`
}
