// Package toolexec runs external programs to completion and checks that they
// are installed.
//
// Every invocation is a single blocking call: the process runs under an
// optional per-call timeout, and its stdout and stderr are captured in full.
// A timeout is reported as a failed run with code apperrors.ErrCodeTimeout;
// cancellation of the caller's context is passed through unchanged so that
// callers can tell an interrupted run from a failed one.
//
// Preflight checks ([Tool.Check], [CheckAll]) resolve binaries on PATH before
// any work starts and report missing ones as apperrors.ToolUnavailableError.
package toolexec
