// Package services defines shared utilities consumed by the session manager
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session, media, task, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (retryable vs needs-user-action) uniform.
//
// Use these helpers when wiring new collaborators so operational behaviour
// (error handling, observability, retries) stays consistent.
package services
