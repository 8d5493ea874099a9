package main

import (
	"errors"

	filterservices "github.com/iota-uz/bookkeeper/modules/filters/services"
	"github.com/iota-uz/bookkeeper/modules/filters/domain/aggregates/reusablefilter"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importmapping"
	"github.com/iota-uz/bookkeeper/modules/imports/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitNotFound   = 5
	exitConflict   = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// classify attaches an exit code to a service error.
func classify(err error) error {
	var ce *cliError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return err
	case errors.Is(err, importjob.ErrNotFound),
		errors.Is(err, importmapping.ErrNotFound),
		errors.Is(err, reusablefilter.ErrNotFound):
		return withCode(exitNotFound, err)
	case errors.Is(err, services.ErrInvalidRegister),
		errors.Is(err, services.ErrInvalidMapping),
		errors.Is(err, services.ErrUnsupportedSource),
		errors.Is(err, filterservices.ErrInvalidFilter):
		return withCode(exitValidation, err)
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrImportInProgress),
		errors.Is(err, services.ErrHasImportedItems),
		errors.Is(err, services.ErrHasLinkedEntities),
		errors.Is(err, services.ErrConcurrentUpdate):
		return withCode(exitConflict, err)
	default:
		return withCode(exitDB, err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
