package ledger

import (
	"errors"
	"fmt"
)

// Kind buckets every failure the ledger can produce so callers can tell
// bad input from missing authority from a wrong-state transition from a
// token-collaborator fault.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindCollaborator  Kind = "collaborator"
)

// Error is the single error type crossing the service boundary. Code is a
// stable machine identifier; Message is for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return e.Message + ": " + e.wrapped.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is matches on Kind+Code so sentinel comparisons via errors.Is work even
// for wrapped collaborator failures.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidAllocation = newErr(KindValidation, "invalid_allocation_percentage", "allocation percentage must be between 0 and 100")
	ErrInvalidRiskScore  = newErr(KindValidation, "invalid_risk_score", "risk score must be between 0 and 100")
	ErrInvalidTargetAPY  = newErr(KindValidation, "invalid_target_apy", "target APY must be greater than zero")
	ErrInvalidAmount     = newErr(KindValidation, "invalid_amount", "amount must be a positive value")
	ErrInvalidYield      = newErr(KindValidation, "invalid_yield_amount", "yield amount must not be negative")
	ErrInvalidPortfolio  = newErr(KindValidation, "invalid_portfolio_value", "portfolio value must not be negative")
	ErrInvalidType       = newErr(KindValidation, "invalid_strategy_type", "unknown strategy type")
	ErrInvalidSeed       = newErr(KindValidation, "invalid_strategy_seed", "strategy seed is required")
	ErrTooManyAccounts   = newErr(KindValidation, "too_many_token_accounts", "a strategy holds at most 5 auxiliary token accounts")

	ErrUnauthorized = newErr(KindAuthorization, "unauthorized", "caller is not the required authority")

	ErrStrategyAlreadyActive = newErr(KindState, "strategy_already_active", "strategy is already active")
	ErrStrategyNotActive     = newErr(KindState, "strategy_not_active", "strategy is not active")
	ErrStrategyTerminated    = newErr(KindState, "strategy_terminated", "strategy is terminated and cannot change state")

	ErrConfigExists     = newErr(KindConflict, "config_exists", "ledger is already initialized")
	ErrStrategyExists   = newErr(KindConflict, "strategy_exists", "a strategy with this seed already exists for the treasury")
	ErrConfigNotFound   = newErr(KindNotFound, "config_not_found", "ledger is not initialized")
	ErrStrategyNotFound = newErr(KindNotFound, "strategy_not_found", "strategy not found")
	ErrStatsNotFound    = newErr(KindNotFound, "treasury_stats_not_found", "treasury stats not found")
)

// Collaborator wraps a token-primitive failure without losing the original:
// errors.Is against the engine's sentinel still succeeds through Unwrap.
func Collaborator(op string, err error) *Error {
	return &Error{
		Kind:    KindCollaborator,
		Code:    "token_" + op + "_failed",
		Message: "token " + op + " failed",
		wrapped: err,
	}
}

func Validationf(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// FeatureDisabled marks an operation refused because its runtime switch is
// off. Callers retry once an operator flips the switch back.
func FeatureDisabled(feature string) *Error {
	return &Error{Kind: KindState, Code: "feature_disabled", Message: "feature " + feature + " is disabled"}
}

// KindOf classifies any error; non-ledger errors count as collaborator-grade
// internal faults and report an empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the stable machine code of a ledger error, or "" for
// foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
