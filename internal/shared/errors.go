package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and feed errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrFeedUnavailable    = fmt.Errorf("recent tracks feed unavailable")
	ErrMalformedPayload   = fmt.Errorf("malformed payload")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Sync errors
	ErrNoThumbnail    = fmt.Errorf("no valid thumbnail")
	ErrSyncInProgress = fmt.Errorf("sync already in progress")
	ErrEmptyFeed      = fmt.Errorf("feed returned no albums")

	// Storage errors
	ErrNotFound = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
