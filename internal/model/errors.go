package model

import (
	"errors"
	"strings"
)

var (
	// ErrSourceUnreachable wraps network and timeout failures on a feed or page.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrMalformedPayload wraps unparseable feeds, JSON-LD or calendars.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrPersistence wraps store write failures.
	ErrPersistence = errors.New("persistence error")
)

// ConfigurationError reports missing or invalid settings. It is returned
// before any network call is made.
type ConfigurationError struct {
	Fields []string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: missing or invalid " + strings.Join(e.Fields, ", ")
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
