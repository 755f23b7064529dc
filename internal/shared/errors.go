package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// CLI errors
	ErrMissingArgument = fmt.Errorf("missing required argument")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrTokenExpired = fmt.Errorf("access token expired")

	// Catalog API errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrInvalidPlaylistURL = fmt.Errorf("invalid playlist URL")

	// Storage errors
	ErrStorage        = fmt.Errorf("storage operation failed")
	ErrObjectNotFound = fmt.Errorf("object not found")

	// Payload errors
	ErrMalformedPayload = fmt.Errorf("malformed payload")
	ErrMissingField     = fmt.Errorf("missing required field")
	ErrInvalidDate      = fmt.Errorf("invalid date")

	// Run errors
	ErrRunInProgress = fmt.Errorf("run already in progress")
	ErrRunNotFound   = fmt.Errorf("run not found")
)
