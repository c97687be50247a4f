package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to errors returned from Handler.Execute.
const (
	CodeMessageRejected = "MICROSITE_MESSAGE_REJECTED"
	CodeRunCanceled     = "MICROSITE_RUN_CANCELED"
	CodeRunTimedOut     = "MICROSITE_RUN_TIMED_OUT"
	CodeRunInterrupted  = "MICROSITE_RUN_INTERRUPTED"
	CodeRunFailed       = "MICROSITE_RUN_FAILED"
)

// tag categorises err unless an inner layer already did; generator fatal
// errors and store errors keep their own category and code.
func tag(err error, category goerrors.Category, code, message string) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}

// rejected re-codes the validation error go-command returns so every refused
// message carries CodeMessageRejected.
func rejected(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "microsite command message rejected").
		WithTextCode(CodeMessageRejected)
}

func interrupted(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return tag(err, goerrors.CategoryCommand, CodeRunCanceled, "microsite run canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return tag(err, goerrors.CategoryCommand, CodeRunTimedOut, "microsite run exceeded its timeout")
	default:
		return tag(err, goerrors.CategoryCommand, CodeRunInterrupted, "microsite run interrupted")
	}
}

// WrapExecuteError tags err as a failed microsite run.
func WrapExecuteError(err error) error {
	return tag(err, goerrors.CategoryCommand, CodeRunFailed, "microsite run failed")
}

// TextCode returns the text code carried by err, or "" when it has none.
func TextCode(err error) string {
	var rich *goerrors.Error
	if errors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}
