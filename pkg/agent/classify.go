package agent

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/planward/planward/pkg/models"
)

// Classify maps an agent interaction error to the failure record shown
// to the user. Provider status codes are checked first, then transport
// errors, then the message text.
func Classify(err error) models.CheckFailure {
	kind := classifyKind(err)

	return models.CheckFailure{Kind: kind, Message: FailureMessage(kind)}
}

// FailureMessage returns the user-facing text for a failure kind.
func FailureMessage(kind models.FailureKind) string {
	switch kind {
	case models.FailureKindCredits:
		return "The AI provider account has run out of credits. Add credits to keep checking plans."
	case models.FailureKindRateLimited:
		return "The AI provider is rate limiting requests. Wait a moment and run the check again."
	case models.FailureKindCredentials:
		return "The AI provider rejected the configured credentials. Update the API key on the server."
	case models.FailureKindOverloaded:
		return "The AI provider is overloaded right now. Run the check again in a little while."
	case models.FailureKindNetwork:
		return "The AI provider could not be reached. Check the network connection and run the check again."
	case models.FailureKindGeneric:
		return "The check did not finish. Findings recorded so far are kept; run it again."
	default:
		return "The check did not finish. Findings recorded so far are kept; run it again."
	}
}

func classifyKind(err error) models.FailureKind {
	if err == nil {
		return models.FailureKindGeneric
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return classifyStatus(providerErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureKindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.FailureKindNetwork
	}

	return classifyText(err.Error())
}

func classifyStatus(err *ProviderError) models.FailureKind {
	switch {
	case err.StatusCode == http.StatusPaymentRequired:
		return models.FailureKindCredits
	case err.StatusCode == http.StatusTooManyRequests:
		return models.FailureKindRateLimited
	case err.StatusCode == http.StatusUnauthorized || err.StatusCode == http.StatusForbidden:
		return models.FailureKindCredentials
	case err.StatusCode >= http.StatusInternalServerError:
		return models.FailureKindOverloaded
	default:
		// Some providers report billing problems under generic 4xx codes,
		// so fall back to reading the body.
		return classifyText(err.Body)
	}
}

func classifyText(text string) models.FailureKind {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "insufficient credit", "credit balance", "billing", "quota exceeded", "payment required"):
		return models.FailureKindCredits
	case containsAny(lower, "rate limit", "too many requests"):
		return models.FailureKindRateLimited
	case containsAny(lower, "api key", "unauthorized", "authentication", "invalid key", "forbidden"):
		return models.FailureKindCredentials
	case containsAny(lower, "overloaded", "over capacity", "service unavailable"):
		return models.FailureKindOverloaded
	case containsAny(lower, "connection refused", "connection reset", "no such host", "dial tcp", "timeout", "network"):
		return models.FailureKindNetwork
	default:
		return models.FailureKindGeneric
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}

	return false
}
