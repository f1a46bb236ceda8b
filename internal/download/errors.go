package download

import "errors"

var (
	// ErrStrategySkipped marks a strategy known not to work for the URL
	ErrStrategySkipped     = errors.New("strategy not applicable")
	ErrAllStrategiesFailed = errors.New("all download strategies failed")
	ErrUnexpectedStatus    = errors.New("unexpected response status")
	ErrAlreadyCommitted    = errors.New("response already committed")
)
