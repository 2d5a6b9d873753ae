package pipeline

// State is a node of the extraction state machine.
type State string

const (
	StateStart                State = "start"
	StateDeterministicAttempt State = "deterministic_attempt"
	StateMatched              State = "matched"
	StateFallbackAttempt      State = "fallback_attempt"
	StateCandidate            State = "candidate"
	StateRejected             State = "rejected"
)

// RejectReason explains a REJECTED outcome. Rejection is a normal result, not an error.
type RejectReason string

const (
	ReasonNone             RejectReason = ""
	ReasonNoFallback       RejectReason = "no_fallback"
	ReasonFallbackFailed   RejectReason = "fallback_failed"
	ReasonModelEmpty       RejectReason = "model_empty"
	ReasonModelUnparseable RejectReason = "model_unparseable"
	ReasonModelNotFound    RejectReason = "model_not_found"
	ReasonNotFinancial     RejectReason = "not_financial"
)

const (
	// ExtractionTemperature keeps the fallback close to deterministic.
	ExtractionTemperature = 0.1

	// DefaultUserID is used by shells when no user is given.
	DefaultUserID = "default"
)
