package usecase

import (
	"errors"

	"currency-sync-service/internal/adapter/postgres"
)

var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when no stored rate matches a lookup.
var ErrNotFound = postgres.ErrNotFound
