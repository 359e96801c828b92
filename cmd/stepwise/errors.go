package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/stepwise/src/config"
	"github.com/elee1766/stepwise/src/executor"
	"github.com/elee1766/stepwise/src/orchestrator"
	"github.com/elee1766/stepwise/src/orclient"
	"github.com/elee1766/stepwise/src/planner"
)

// Exit codes following standard conventions
const (
	ExitSuccess           = 0  // Success
	ExitError             = 1  // General error
	ExitUsage             = 2  // Usage error
	ExitConfig            = 3  // Configuration error
	ExitAuth              = 4  // Authentication error
	ExitNetwork           = 6  // Language model service unreachable or failing
	ExitTimeout           = 7  // Timeout error
	ExitInterrupted       = 8  // Interrupted by user
	ExitTurnLimit         = 10 // A step ran out of tool turns
	ExitProtocolViolation = 11 // The model sent a result and tool calls together
	ExitPlanFailure       = 12 // The plan could not be parsed
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
	exit   func(int)
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger, exit: os.Exit}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	h.exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var apiErr *orclient.APIError

	switch {
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrConfigNotFound):
		return ExitConfig
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.Is(err, orchestrator.ErrTurnLimitExceeded):
		return ExitTurnLimit
	case errors.Is(err, executor.ErrProtocolViolation):
		return ExitProtocolViolation
	case errors.Is(err, planner.ErrSchemaParseFailure):
		return ExitPlanFailure
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, orclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, orclient.ErrServiceTransport), apiErr != nil:
		return ExitNetwork
	case errors.Is(err, errUsage), errors.Is(err, orchestrator.ErrEmptyTask), errors.Is(err, planner.ErrEmptyTask):
		return ExitUsage
	default:
		return ExitError
	}
}
