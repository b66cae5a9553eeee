package service

import "errors"

// ErrInvalidArgument is returned by constructors when a required collaborator is missing.
var ErrInvalidArgument = errors.New("invalid argument")
