package judge

import "codearena/internal/domain/model"

// Raw judge status ids. Ids 7 through 12 are runtime-error variants
// (SIGSEGV, SIGXFSZ, SIGFPE, SIGABRT, NZEC, other).
const (
	statusInQueue           = 1
	statusProcessing        = 2
	statusAccepted          = 3
	statusWrongAnswer       = 4
	statusTimeLimitExceeded = 5
	statusCompileError      = 6
	statusRuntimeErrorFirst = 7
	statusRuntimeErrorLast  = 12
)

// terminal reports whether a status id will never change again.
func terminal(id int) bool {
	return id != statusInQueue && id != statusProcessing
}

// verdictForStatus maps a raw judge status id onto the closed verdict set.
// Any id outside the enumerated set is an InternalError, never a pass.
func verdictForStatus(id int) model.Verdict {
	switch {
	case id == statusInQueue:
		return model.VerdictPending
	case id == statusProcessing:
		return model.VerdictRunning
	case id == statusAccepted:
		return model.VerdictAccepted
	case id == statusWrongAnswer:
		return model.VerdictWrongAnswer
	case id == statusTimeLimitExceeded:
		return model.VerdictTimeLimitExceeded
	case id == statusCompileError:
		return model.VerdictCompileError
	case id >= statusRuntimeErrorFirst && id <= statusRuntimeErrorLast:
		return model.VerdictRuntimeError
	default:
		return model.VerdictInternalError
	}
}
