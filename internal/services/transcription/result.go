package transcription

import (
	"fmt"
	"strings"
)

// Outcome says whether a single model attempt produced usable text.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Failure reasons shown to users. They never carry provider details.
const (
	ReasonError   = "error"
	ReasonTimeout = "timeout"
	ReasonQuota   = "quota exceeded"
	ReasonEmpty   = "empty result"
)

// Attempt is the outcome of invoking one model.
type Attempt struct {
	Model   string
	Outcome Outcome
	Reason  string
	Err     error
}

// Result collects every attempt of one cascade run.
type Result struct {
	Text     string
	Model    string
	Attempts []Attempt
	// Remote is set whenever the upload succeeded, on success and exhaustion alike.
	Remote *RemoteFile
}

func (r *Result) Succeeded() bool {
	return r != nil && r.Model != ""
}

// Failures lists the failed attempts in the order they were made.
func (r *Result) Failures() []Attempt {
	if r == nil {
		return nil
	}
	var failures []Attempt
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeFailure {
			failures = append(failures, a)
		}
	}
	return failures
}

// Diagnostics renders the failures as "[model: reason, ...]".
func (r *Result) Diagnostics() string {
	failures := r.Failures()
	parts := make([]string, 0, len(failures))
	for _, a := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Model, a.Reason))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
