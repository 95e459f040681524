package explorer

import (
	"errors"
	"strings"
)

var (
	ErrHomeLocationRequired  = errors.New("home location is required for distance filters")
	ErrHomeLocationAmbiguous = errors.New("more than one home location is configured")
	ErrHomeMarkersMissing    = errors.New("home location markers table is missing (app.location_markers)")
	ErrUnavailable           = errors.New("database unavailable")
)

// ParamError reports a query parameter that is not valid JSON.
type ParamError struct {
	Name string
	Err  error
}

func (e *ParamError) Error() string { return "Invalid JSON for " + e.Name }

func (e *ParamError) Unwrap() error { return e.Err }

// ValidationError carries every validation message for a rejected request.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "filter validation failed: " + strings.Join(e.Errors, " ")
}
