package cli

import (
	"errors"

	"github.com/specialistvlad/formulagrid/internal/app"
)

// ExitCode maps an error returned by Parse or an app command to the process
// exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, app.ErrLoad) || errors.Is(err, app.ErrResolve) {
		return ExitLoadFailed
	}
	// Failed builds (*executor.FailureSummary) and anything unexpected.
	return ExitBuild
}
