// Package httputil provides retry helpers shared by the feed clients.
//
// Transient failures (network errors, 5xx responses) are wrapped with
// [RetryableError] by the caller; [Retry] re-attempts only those, with
// exponential backoff, and respects context cancellation between attempts.
package httputil
