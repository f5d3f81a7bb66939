// Package errors defines the categorized failure type shared by every
// generation provider and the question pipeline.
//
// Each failure carries exactly one ErrorCode from a fixed vocabulary
// (AUTH, NETWORK, RATE_LIMIT, TIMEOUT, PARSE, PROVIDER_ERROR,
// INVALID_REQUEST), the id of the provider that raised it, a human-readable
// message and an optional cause. Callers branch on the code, never on the
// message text.
package errors
