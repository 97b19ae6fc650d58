package domain

import "fmt"

// ExecRequest is an operator-submitted command targeting one container.
type ExecRequest struct {
	Container string `json:"container"`
	Command   string `json:"command"`
}

// ExecResult is the one-shot response to an ExecRequest. When Blocked is true
// the command never reached the runtime: Reason is populated and the output
// fields are absent.
type ExecResult struct {
	Blocked  bool   `json:"blocked"`
	Reason   string `json:"reason,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// BlockedResult builds a terminal blocked ExecResult.
func BlockedResult(reason string) ExecResult {
	return ExecResult{Blocked: true, Reason: reason}
}

// PolicyViolation is the structured deny outcome of a command policy check.
type PolicyViolation struct {
	Rule   string // rule kind that matched: token, prefix, pattern, structural
	Reason string // human-readable description surfaced to the operator
}

func (v *PolicyViolation) Error() string {
	return fmt.Sprintf("policy denied command (%s): %s", v.Rule, v.Reason)
}
