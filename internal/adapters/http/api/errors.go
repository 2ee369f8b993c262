package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrInvalidMinScore = errors.New("minScore must be an integer")
	ErrInvalidBody     = errors.New("request body must be a JSON object")
	ErrMissingParam    = errors.New("missing path parameter")
)
