package models

import "errors"

var (
	// ErrNotFound means the liquidity provider has no pair for the asset.
	ErrNotFound = errors.New("token pair not found")
	// ErrSourceUnavailable covers network and decode failures of an upstream source.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrValidationFailed is returned for malformed user input, before any state changes.
	ErrValidationFailed = errors.New("validation failed")
	// ErrRateLimited is returned when an upstream answers 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout is returned when an upstream call exceeds its time budget.
	ErrTimeout = errors.New("timeout")
	// ErrUnsupportedPlatform means the aggregator has no platform for a chain id.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrRefreshInProgress is returned when a refresh cycle is already running.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
