package model

import "time"

// Verdict is the normalized, closed classification of an execution outcome.
type Verdict string

const (
	VerdictPending           Verdict = "Pending"
	VerdictRunning           Verdict = "Running"
	VerdictAccepted          Verdict = "Accepted"
	VerdictWrongAnswer       Verdict = "WrongAnswer"
	VerdictRuntimeError      Verdict = "RuntimeError"
	VerdictCompileError      Verdict = "CompileError"
	VerdictTimeLimitExceeded Verdict = "TimeLimitExceeded"
	VerdictInternalError     Verdict = "InternalError"
)

type Submission struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	ProblemID   string       `json:"problem_id"`
	Language    Language     `json:"language"`
	SourceCode  string       `json:"source_code"`
	Status      Verdict      `json:"status"`
	AvgTimeMs   *float64     `json:"avg_time_ms,omitempty"`
	AvgMemoryKb *float64     `json:"avg_memory_kb,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CaseResults []CaseResult `json:"case_results,omitempty"`
}

// CaseResult is the outcome of one test case within a submission. CaseIndex
// aligns with the problem's test-case order; Incomplete marks cases that never
// reached a terminal status before the polling deadline. An incomplete case is
// never a pass.
type CaseResult struct {
	ID             string   `json:"id,omitempty"`
	SubmissionID   string   `json:"submission_id,omitempty"`
	Token          string   `json:"token"`
	CaseIndex      int      `json:"case_index"`
	Stdout         string   `json:"stdout"`
	Stderr         string   `json:"stderr,omitempty"`
	TimeMs         *float64 `json:"time_ms,omitempty"`
	MemoryKb       *int     `json:"memory_kb,omitempty"`
	ExternalStatus string   `json:"external_status"`
	Verdict        Verdict  `json:"verdict"`
	Passed         bool     `json:"passed"`
	Incomplete     bool     `json:"incomplete,omitempty"`
}
