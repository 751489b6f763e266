// Package exitcode defines the process exit codes taskdeck reports, so
// scripts can tell input mistakes from auth problems from a dead backend.
package exitcode

const (
	// Success means the command completed normally.
	Success = 0

	// UserError covers bad input: unknown task ids, invalid flags,
	// fields the backend rejected as malformed.
	UserError = 1

	// AuthError means the session is missing, expired, or was rejected.
	AuthError = 2

	// BackendError covers unreachable servers, timeouts and 5xx replies.
	BackendError = 3
)
