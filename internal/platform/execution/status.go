package execution

import (
	"strings"

	"roundjudge/internal/domain/model"
)

// Judge0 status ids.
const (
	statusInQueue          = 1
	statusProcessing       = 2
	statusAccepted         = 3
	statusWrongAnswer      = 4
	statusTimeLimit        = 5
	statusCompilationError = 6
	statusRuntimeFirst     = 7  // SIGSEGV
	statusRuntimeLast      = 12 // NZEC and friends
	statusInternalError    = 13
	statusExecFormatError  = 14
)

func isTerminal(s submissionStatus) bool {
	if s.ID != 0 {
		return s.ID != statusInQueue && s.ID != statusProcessing
	}
	desc := strings.ToLower(strings.TrimSpace(s.Description))
	return desc != "" && desc != "in queue" && desc != "processing"
}

func classify(s submissionStatus) model.VerdictKind {
	switch {
	case s.ID == statusAccepted:
		return model.VerdictSuccess
	case s.ID == statusWrongAnswer:
		return model.VerdictWrongAnswer
	case s.ID == statusTimeLimit:
		return model.VerdictTimeLimit
	case s.ID == statusCompilationError:
		return model.VerdictCompileError
	case s.ID >= statusRuntimeFirst && s.ID <= statusRuntimeLast, s.ID == statusExecFormatError:
		return model.VerdictRuntimeError
	case s.ID == statusInternalError:
		return model.VerdictServiceError
	}

	desc := strings.ToLower(s.Description)
	switch {
	case desc == "accepted":
		return model.VerdictSuccess
	case strings.Contains(desc, "wrong answer"):
		return model.VerdictWrongAnswer
	case strings.Contains(desc, "time limit"):
		return model.VerdictTimeLimit
	case strings.Contains(desc, "compilation"):
		return model.VerdictCompileError
	case strings.Contains(desc, "internal error"):
		return model.VerdictServiceError
	default:
		return model.VerdictRuntimeError
	}
}

func toVerdict(res *submissionResponse) model.ExecutionVerdict {
	v := model.ExecutionVerdict{
		StatusDescription: res.Status.Description,
		Kind:              classify(res.Status),
	}
	if res.Stdout != nil {
		v.Stdout = *res.Stdout
	}
	if res.Stderr != nil {
		v.Stderr = *res.Stderr
	}
	if v.Stderr == "" && res.CompileOutput != nil {
		v.Stderr = *res.CompileOutput
	}
	return v
}
