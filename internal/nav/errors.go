package nav

import "errors"

var (
	ErrNotInitialized = errors.New("nav: navigator not initialized")
	ErrInvalidLayout  = errors.New("nav: invalid layout")
	ErrNotFound       = errors.New("nav: not found")
	ErrInvalidStart   = errors.New("nav: invalid start")
	ErrInvalidGoal    = errors.New("nav: invalid goal")
	ErrNoPath         = errors.New("nav: no path")
	ErrInvalidCost    = errors.New("nav: cost multiplier must be positive")
)

// Reason explains why a route query failed.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotInitialized Reason = "NotInitialized"
	ReasonInvalidStart   Reason = "InvalidStart"
	ReasonInvalidGoal    Reason = "InvalidGoal"
	ReasonNoPath         Reason = "NoPath"
)

// Err maps the reason onto its sentinel error, or nil for ReasonNone.
func (r Reason) Err() error {
	switch r {
	case ReasonNone:
		return nil
	case ReasonNotInitialized:
		return ErrNotInitialized
	case ReasonInvalidStart:
		return ErrInvalidStart
	case ReasonInvalidGoal:
		return ErrInvalidGoal
	default:
		return ErrNoPath
	}
}
