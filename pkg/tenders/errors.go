package tenders

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a raw record that carries neither an id nor a
	// title. Such records are skipped, the rest of the batch continues.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrConfiguration marks an unusable scoring configuration.
	ErrConfiguration = errors.New("invalid scoring configuration")
)

// MalformedRecordError describes a raw record dropped during normalization.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedRecord, e.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, ErrMalformedRecord, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// ConfigurationError is returned before any record is scored when the
// configuration cannot be used.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
