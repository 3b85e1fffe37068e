package domain

import (
	"fmt"
	"syscall"
)

// ExitKind names the category a child termination falls into
type ExitKind string

const (
	// ExitClean is a zero exit status, assumed to be a graceful shutdown
	ExitClean ExitKind = "clean"
	// ExitInterrupt is a Ctrl-C style termination (SIGINT, raw 130)
	ExitInterrupt ExitKind = "interrupt"
	// ExitTerminated is a termination request (SIGTERM, raw 143)
	ExitTerminated ExitKind = "terminated"
	// ExitKilled is a forceful kill such as the OOM killer (SIGKILL, raw 137)
	ExitKilled ExitKind = "killed"
	// ExitUnexpected is anything else; the code is carried alongside
	ExitUnexpected ExitKind = "unexpected"
)

// String returns the string representation of ExitKind
func (k ExitKind) String() string {
	return string(k)
}

// Raw exit statuses as reported by shells for signal deaths (128 + signal number)
const (
	RawExitClean      = 0
	RawExitInterrupt  = 130
	RawExitKilled     = 137
	RawExitTerminated = 143
)

// signalExitBase is added to a signal number to get the shell-style exit status
const signalExitBase = 128

// ExitReason describes how a child terminated. Signal is non-zero when the
// child was killed by a signal; otherwise Code holds its exit status.
type ExitReason struct {
	Code   int
	Signal syscall.Signal
}

// ExitedWith returns a reason for a normal exit with the given status
func ExitedWith(code int) ExitReason {
	return ExitReason{Code: code}
}

// SignaledBy returns a reason for a death by signal
func SignaledBy(sig syscall.Signal) ExitReason {
	return ExitReason{Code: signalExitBase + int(sig), Signal: sig}
}

// Signaled reports whether the child was terminated by a signal
func (r ExitReason) Signaled() bool {
	return r.Signal != 0
}

// RawCode returns the shell-compatible exit status for the reason
func (r ExitReason) RawCode() int {
	if r.Signaled() {
		return signalExitBase + int(r.Signal)
	}
	return r.Code
}

// String returns a human readable description of the reason
func (r ExitReason) String() string {
	if r.Signaled() {
		return fmt.Sprintf("signal %s", r.Signal)
	}
	return fmt.Sprintf("code %d", r.Code)
}

// ExitClassification is the named outcome of a child termination.
// Code is only meaningful for ExitUnexpected.
type ExitClassification struct {
	Kind ExitKind `json:"kind"`
	Code int      `json:"code,omitempty"`
}

// Unexpected returns the classification for an unrecognised exit status
func Unexpected(code int) ExitClassification {
	return ExitClassification{Kind: ExitUnexpected, Code: code}
}

// String returns the classification as clean, interrupt, terminated, killed or unexpected(code)
func (c ExitClassification) String() string {
	if c.Kind == ExitUnexpected {
		return fmt.Sprintf("%s(%d)", c.Kind, c.Code)
	}
	return c.Kind.String()
}

// ClassifyCode maps a raw exit status to its classification. It is the
// compatibility mapping for environments that only expose numeric codes.
func ClassifyCode(code int) ExitClassification {
	switch code {
	case RawExitClean:
		return ExitClassification{Kind: ExitClean}
	case RawExitInterrupt:
		return ExitClassification{Kind: ExitInterrupt}
	case RawExitTerminated:
		return ExitClassification{Kind: ExitTerminated}
	case RawExitKilled:
		return ExitClassification{Kind: ExitKilled}
	default:
		return Unexpected(code)
	}
}

// Classify maps a structured exit reason to its classification.
// Known signals are matched by name; everything else falls back to the raw code table.
func Classify(r ExitReason) ExitClassification {
	if !r.Signaled() {
		return ClassifyCode(r.Code)
	}
	switch r.Signal {
	case syscall.SIGINT:
		return ExitClassification{Kind: ExitInterrupt}
	case syscall.SIGTERM:
		return ExitClassification{Kind: ExitTerminated}
	case syscall.SIGKILL:
		return ExitClassification{Kind: ExitKilled}
	default:
		return Unexpected(r.RawCode())
	}
}
