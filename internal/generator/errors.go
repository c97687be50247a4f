package generator

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// FatalTextCode tags errors that abort a whole run.
const FatalTextCode = "GENERATOR_FATAL"

var (
	ErrArticlesRequired = errors.New("generator: article source is required")
	ErrMenusRequired    = errors.New("generator: menu provider is required")
	ErrPagesRequired    = errors.New("generator: page renderer is required")
	ErrOutputRequired   = errors.New("generator: output directory is required")
	ErrInvalidSlug      = errors.New("generator: article slug is not a safe path segment")
)

func fatal(state State, err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("generator: %s failed", state)).
		WithTextCode(FatalTextCode)
}
