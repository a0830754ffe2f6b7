package main

import (
	"context"
	"errors"

	"github.com/vertextoedge/aaxfetch/internal/domain"
)

// Process exit codes
const (
	exitOK           = 0
	exitFailure      = 1
	exitUsage        = 2
	exitUnauthorized = 3
	exitInterrupted  = 130
)

// exitCode maps a transfer error to the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, domain.ErrUnauthorized):
		return exitUnauthorized
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidLocator):
		return exitUsage
	default:
		return exitFailure
	}
}
