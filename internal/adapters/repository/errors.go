package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("evaluation not found")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)
