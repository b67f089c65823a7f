package entity

import "errors"

var (
	ErrSyncInProgress  = errors.New("a sync run is already in progress")
	ErrInvalidSyncMode = errors.New("invalid sync mode")
	ErrMetricsTimeout  = errors.New("metrics recalculation timed out")
)
