package models

// FailureKind classifies why a generation or check attempt failed, so
// the surface can tell the user what to do about it.
type FailureKind string

const (
	FailureKindCredits     FailureKind = "credits"      // Provider account has no credits left
	FailureKindRateLimited FailureKind = "rate_limited" // Provider throttled the request
	FailureKindCredentials FailureKind = "credentials"  // API key missing or rejected
	FailureKindOverloaded  FailureKind = "overloaded"   // Provider temporarily overloaded
	FailureKindNetwork     FailureKind = "network"      // Request never reached the provider
	FailureKindGeneric     FailureKind = "generic"      // Anything else
)

// CheckFailure is the user-facing account of a failed attempt. Message
// is already phrased for display.
type CheckFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}
