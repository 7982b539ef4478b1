package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrConflict indicates that a write lost a race against another writer
// (e.g. the row was no longer in the expected state).
var ErrConflict = errors.New("resource was modified concurrently")

// ErrUpstream indicates that an external dependency (ledger, quote source, broker)
// failed or returned an unusable response.
var ErrUpstream = errors.New("upstream dependency failure")

// ErrUnknownTransactionType indicates an event carried a type no processor handles.
var ErrUnknownTransactionType = errors.New("unknown transaction type")

// ErrSettledNotSaved indicates the ledger was changed but the outcome could not be stored
// or dead-lettered. Processing the event again would apply the ledger change twice.
var ErrSettledNotSaved = errors.New("ledger settled but outcome not saved")
