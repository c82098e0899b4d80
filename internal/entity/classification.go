package entity

// ClassificationKind tags the variant held by a ClassificationResult.
type ClassificationKind int

const (
	ClassificationSuccess ClassificationKind = iota
	ClassificationBlockedByPolicy
	ClassificationTransientFailure
	ClassificationMalformedResponse
)

func (k ClassificationKind) String() string {
	switch k {
	case ClassificationSuccess:
		return "success"
	case ClassificationBlockedByPolicy:
		return "blocked_by_policy"
	case ClassificationTransientFailure:
		return "transient_failure"
	default:
		return "malformed_response"
	}
}

// ClassificationResult is the outcome of one call to the generative text service.
// Text is set only for ClassificationSuccess; Reason carries diagnostics for the failure kinds.
type ClassificationResult struct {
	Kind   ClassificationKind
	Text   string
	Reason string
}

func Classified(text string) ClassificationResult {
	return ClassificationResult{Kind: ClassificationSuccess, Text: text}
}

func BlockedByPolicy(reason string) ClassificationResult {
	return ClassificationResult{Kind: ClassificationBlockedByPolicy, Reason: reason}
}

func TransientFailure(reason string) ClassificationResult {
	return ClassificationResult{Kind: ClassificationTransientFailure, Reason: reason}
}

func MalformedResponse(reason string) ClassificationResult {
	return ClassificationResult{Kind: ClassificationMalformedResponse, Reason: reason}
}

// OK reports whether the result holds usable text.
func (r ClassificationResult) OK() bool {
	return r.Kind == ClassificationSuccess
}
