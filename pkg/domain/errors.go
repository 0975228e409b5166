package domain

import "errors"

// ErrKeyNotFound is returned by a key-value store when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrFormNotFound is returned when no schema is registered for a form ID.
var ErrFormNotFound = errors.New("form not found")

// ErrInvalidFormID is returned when a form identifier cannot be used to derive storage keys.
var ErrInvalidFormID = errors.New("invalid form id")

// ErrStepOutOfRange is returned when a step number is outside 1..N.
var ErrStepOutOfRange = errors.New("step out of range")

// ErrValidation is the sentinel wrapped by ValidationError.
var ErrValidation = errors.New("validation failed")

// ErrSubmitFailed wraps errors returned by the downstream submitter.
var ErrSubmitFailed = errors.New("submission failed")
