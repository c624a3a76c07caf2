package usecase

import "errors"

// Pipeline failure categories. Validation failures are permanent and reject
// the job before it enters PROCESSING; the rest follow the retry budget.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConversion   = errors.New("video conversion failed")
	ErrStreamWriter = errors.New("output stream writer failed")
	ErrPersistence  = errors.New("persistence failed")
)
