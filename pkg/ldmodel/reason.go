package ldmodel

// ErrorKind enumerates the reasons Evaluate can fail without raising.
type ErrorKind string

const (
	ErrorClientNotReady  ErrorKind = "CLIENT_NOT_READY"
	ErrorFlagNotFound    ErrorKind = "FLAG_NOT_FOUND"
	ErrorUserNotSpecified ErrorKind = "USER_NOT_SPECIFIED"
	ErrorMalformedFlag   ErrorKind = "MALFORMED_FLAG"
	ErrorException       ErrorKind = "EXCEPTION"
	ErrorWrongType       ErrorKind = "WRONG_TYPE"
)

// ReasonKind tags which variant of Reason is populated.
type ReasonKind string

const (
	ReasonOff                  ReasonKind = "OFF"
	ReasonFallthrough          ReasonKind = "FALLTHROUGH"
	ReasonTargetMatch          ReasonKind = "TARGET_MATCH"
	ReasonRuleMatch            ReasonKind = "RULE_MATCH"
	ReasonPrerequisiteFailed   ReasonKind = "PREREQUISITE_FAILED"
	ReasonError                ReasonKind = "ERROR"
)

// Reason explains why Evaluate returned the value it did.
type Reason struct {
	Kind ReasonKind

	// RULE_MATCH
	RuleIndex int
	RuleID    string

	// PREREQUISITE_FAILED
	PrerequisiteKey string

	// ERROR
	ErrorKind ErrorKind
}

func OffReason() Reason         { return Reason{Kind: ReasonOff} }
func FallthroughReason() Reason { return Reason{Kind: ReasonFallthrough} }
func TargetMatchReason() Reason { return Reason{Kind: ReasonTargetMatch} }

func RuleMatchReason(index int, id string) Reason {
	return Reason{Kind: ReasonRuleMatch, RuleIndex: index, RuleID: id}
}

func PrerequisiteFailedReason(key string) Reason {
	return Reason{Kind: ReasonPrerequisiteFailed, PrerequisiteKey: key}
}

func ErrorReason(kind ErrorKind) Reason {
	return Reason{Kind: ReasonError, ErrorKind: kind}
}

// EvaluationDetail is the full result of one Evaluate call.
type EvaluationDetail struct {
	Value         Value
	VariationIndex *int
	Reason        Reason
}
