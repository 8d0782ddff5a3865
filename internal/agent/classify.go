package agent

import "strings"

// Classify maps raw failure output into the failure taxonomy. It is a pure
// function: the same raw error text always yields the same class. Rules are
// checked in priority order; this is the single place failure-specific
// policy lives.
func Classify(actionName, rawErr string) ClassifiedFailure {
	errStr := strings.ToLower(rawErr)

	// Network/transport-level errors - transient, retry-eligible
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dns") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return ClassifiedFailure{Action: actionName, RawError: rawErr, Class: FailTransient, Retryable: true}
	}

	// Authentication/authorization markers - not retryable with the same
	// credentials, signals escalation
	if strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "authentication failed") ||
		strings.Contains(errStr, "access denied") {
		return ClassifiedFailure{Action: actionName, RawError: rawErr, Class: FailAuth, Retryable: false}
	}

	// Rate-limit markers - retry-eligible with backoff
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return ClassifiedFailure{Action: actionName, RawError: rawErr, Class: FailRateLimited, Retryable: true}
	}

	// Argument/schema mismatch or explicit unsupported/not-found capability
	// errors - triggers the acquisition flow
	if strings.Contains(errStr, "unknown capability") ||
		strings.Contains(errStr, "unsupported") ||
		strings.Contains(errStr, "not supported") ||
		strings.Contains(errStr, "validation failed") ||
		strings.Contains(errStr, "schema") ||
		strings.Contains(errStr, "not found") {
		return ClassifiedFailure{Action: actionName, RawError: rawErr, Class: FailMissingCapability, Retryable: false}
	}

	// Anything unmatched - retry-eligible at most once before escalation
	return ClassifiedFailure{Action: actionName, RawError: rawErr, Class: FailUnknown, Retryable: true}
}
