package model

// VerdictKind classifies a remote execution outcome.
type VerdictKind string

const (
	VerdictSuccess        VerdictKind = "Success"
	VerdictWrongAnswer    VerdictKind = "WrongAnswer"
	VerdictRuntimeError   VerdictKind = "RuntimeError"
	VerdictCompileError   VerdictKind = "CompilationError"
	VerdictTimeLimit      VerdictKind = "TimeLimitExceeded"
	VerdictServiceError   VerdictKind = "ServiceError"   // service unreachable or erroring after retries
	VerdictServiceTimeout VerdictKind = "ServiceTimeout" // polling deadline elapsed
)

const (
	StatusDescServiceError   = "Service Error"
	StatusDescServiceTimeout = "Service Timeout"
)

// ExecutionVerdict is the result of one remote run.
type ExecutionVerdict struct {
	Stdout            string      `json:"stdout"`
	Stderr            string      `json:"stderr"`
	StatusDescription string      `json:"status"`
	Kind              VerdictKind `json:"kind"`
}

// IsServiceFailure reports whether the verdict came from our side of the wire
// rather than from the participant's program.
func (v ExecutionVerdict) IsServiceFailure() bool {
	return v.Kind == VerdictServiceError || v.Kind == VerdictServiceTimeout
}

// Output is what a participant sees for an ad-hoc run.
func (v ExecutionVerdict) Output() string {
	if v.Stdout != "" {
		return v.Stdout
	}
	return v.Stderr
}

func ServiceErrorVerdict(detail string) ExecutionVerdict {
	return ExecutionVerdict{StatusDescription: StatusDescServiceError, Stderr: detail, Kind: VerdictServiceError}
}

func ServiceTimeoutVerdict() ExecutionVerdict {
	return ExecutionVerdict{StatusDescription: StatusDescServiceTimeout, Kind: VerdictServiceTimeout}
}

// CaseResult is the outcome of a single test case, attributed by Index.
type CaseResult struct {
	Index  int         `json:"index"`
	Passed bool        `json:"passed"`
	Status string      `json:"status"`
	Kind   VerdictKind `json:"kind"`
}

// TestRunReport aggregates all cases of one submission.
type TestRunReport struct {
	TestsPassed int          `json:"testsPassed"`
	TotalTests  int          `json:"totalTests"`
	Results     []CaseResult `json:"results"`
}

func (r TestRunReport) AllPassed() bool {
	return r.TotalTests > 0 && r.TestsPassed == r.TotalTests
}
