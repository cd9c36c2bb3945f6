package judge

import (
	"strconv"
	"strings"

	"codearena/internal/domain/model"
)

// Mode selects how a case counts as passed.
type Mode int

const (
	// ModeJudged lets the judge compare stdout against the expected output;
	// only its Accepted status counts as a pass. Used for recorded
	// submissions and problem validation.
	ModeJudged Mode = iota
	// ModeBareRun compares stdout locally, insensitive to trailing
	// whitespace. The expected output is never sent to the judge.
	ModeBareRun
)

// Outcome is the aggregated result of one batch.
type Outcome struct {
	Status      model.Verdict      `json:"status"`
	CaseResults []model.CaseResult `json:"case_results"`
	AvgTimeMs   *float64           `json:"avg_time_ms,omitempty"`
	AvgMemoryKb *float64           `json:"avg_memory_kb,omitempty"`
}

// Aggregate folds raw per-case statuses into one verdict. The aggregate is
// Accepted iff every case passed; otherwise it is the classification of the
// first failing case. An incomplete first failure classifies as
// InternalError; a timeout is never reported as WrongAnswer. Averages cover
// only cases with parseable metrics; cases without metrics (compile failures,
// incompletes) are excluded rather than counted as zero.
func Aggregate(raw []RawResult, cases []Case, mode Mode) Outcome {
	out := Outcome{
		Status:      model.VerdictAccepted,
		CaseResults: make([]model.CaseResult, 0, len(raw)),
	}

	var timeSum, memSum float64
	var timeN, memN int

	for i, r := range raw {
		cr := model.CaseResult{
			Token:          r.Token,
			CaseIndex:      i,
			Stdout:         r.Stdout,
			Stderr:         r.Stderr,
			ExternalStatus: r.Description,
			Verdict:        verdictForStatus(r.StatusID),
			Incomplete:     r.Incomplete,
		}

		if !r.Incomplete {
			switch mode {
			case ModeJudged:
				cr.Passed = cr.Verdict == model.VerdictAccepted
			case ModeBareRun:
				if cr.Verdict == model.VerdictAccepted {
					expected := ""
					if i < len(cases) && cases[i].ExpectedOutput != nil {
						expected = *cases[i].ExpectedOutput
					}
					cr.Passed = outputsMatch(r.Stdout, expected)
					if !cr.Passed {
						cr.Verdict = model.VerdictWrongAnswer
					}
				}
			}
		}

		if ms, ok := parseTimeMs(r.Time); ok {
			cr.TimeMs = &ms
			timeSum += ms
			timeN++
		}
		if r.Memory != nil {
			cr.MemoryKb = r.Memory
			memSum += float64(*r.Memory)
			memN++
		}

		if !cr.Passed && out.Status == model.VerdictAccepted {
			if cr.Incomplete {
				out.Status = model.VerdictInternalError
			} else {
				out.Status = cr.Verdict
			}
		}

		out.CaseResults = append(out.CaseResults, cr)
	}

	if timeN > 0 {
		avg := timeSum / float64(timeN)
		out.AvgTimeMs = &avg
	}
	if memN > 0 {
		avg := memSum / float64(memN)
		out.AvgMemoryKb = &avg
	}
	return out
}

// outputsMatch compares program output against the expected output ignoring
// trailing whitespace on each line and at the end of the output.
func outputsMatch(got, want string) bool {
	return trimTrailing(got) == trimTrailing(want)
}

func trimTrailing(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// parseTimeMs converts the judge's seconds-as-decimal-string into
// milliseconds. Absent or malformed values yield no metric.
func parseTimeMs(t string) (float64, bool) {
	if t == "" {
		return 0, false
	}
	sec, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return sec * 1000, true
}
