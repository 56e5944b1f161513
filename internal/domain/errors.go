package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrValidation               = errors.New("validation failed")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrAlreadyEvaluated         = errors.New("efficiency already evaluated")
	ErrResidualRiskNotEvaluable = errors.New("residual risk requires an evaluated action")
	ErrGovernanceImmutable      = errors.New("governance activity is immutable")
	ErrDuplicateInstance        = errors.New("function instance already exists")
)
