package fx

import "errors"

var (
	errNoProvider  = errors.New("no FX provider configured")
	errInvalidRate = errors.New("provider returned a non-positive rate")
)
