package runtime

import (
	"context"

	"github.com/loopwise/loopwise/internal/workspace"
	"github.com/loopwise/loopwise/pkg/domain"
)

// runBrowserActions executes a step's browser actions. Each action is
// isolated: a failure is logged against the session and the next action
// still runs. The step itself is never aborted.
func (e *Executor) runBrowserActions(ctx context.Context, step *domain.Step) {
	if len(step.BrowserActions) == 0 {
		return
	}
	if e.browser == nil {
		e.logger.Warn("browser actions configured but no browser available", "step", step.ID)
		e.logError(ctx, "browser_init_error", "no browser configured")
		return
	}

	for _, action := range step.BrowserActions {
		err := e.browser.Do(ctx, action)
		if err != nil {
			e.logError(ctx, "browser_action_error", err.Error())
		}
		if lerr := e.recorder.LogAction(ctx, e.session.ID, action.Type, action.Params, err == nil); lerr != nil {
			e.logger.Error("failed to record browser action", "error", lerr)
		}
	}
}

// runFileOperations executes a step's file side effects using the response
// text. Writes persist the response (or its first fenced code block); reads
// bind the content to a "file_<target>" variable for later steps. Failures
// are logged, never propagated.
func (e *Executor) runFileOperations(ctx context.Context, step *domain.Step, response string) {
	if len(step.FileOperations) == 0 {
		return
	}
	if e.workspace == nil {
		e.logger.Warn("file operations configured but no workspace available", "step", step.ID)
		return
	}

	for _, op := range step.FileOperations {
		switch op.Type {
		case "write":
			if op.Target == "" {
				e.logger.Warn("file operation missing target", "step", step.ID)
				continue
			}
			content := response
			if op.ExtractCode {
				code, ok := workspace.ExtractCode(response, op.Language)
				if !ok {
					e.logError(ctx, "file_write_error", "no code block found in response for "+op.Target)
					continue
				}
				content = code
			}
			if err := e.workspace.WriteFile(op.Target, content); err != nil {
				e.logError(ctx, "file_write_error", err.Error())
				continue
			}
			if lerr := e.recorder.LogAction(ctx, e.session.ID, "file_write",
				map[string]any{"file": op.Target, "extracted_code": op.ExtractCode}, true); lerr != nil {
				e.logger.Error("failed to record file write", "error", lerr)
			}

		case "read":
			content, err := e.workspace.ReadFile(op.Target)
			if err != nil {
				e.logError(ctx, "file_read_error", err.Error())
				continue
			}
			e.vars.Set("file_"+op.Target, content)

		default:
			e.logger.Warn("unknown file operation", "type", op.Type, "step", step.ID)
		}
	}
}
