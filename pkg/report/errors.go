package report

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a report is requested before capture started
	ErrNotInitialized = errors.New("no console logger, capture was never initialized")

	// ErrNoEndpoint is returned when no collector endpoint has been set
	ErrNoEndpoint = errors.New("no bug report endpoint has been set")

	// ErrInvalidPayload is returned when a payload does not match the collector schema
	ErrInvalidPayload = errors.New("invalid bug report payload")
)

// DeliveryError reports a failed delivery attempt. Status is the HTTP
// status returned by the collector, or 0 when the transport failed.
type DeliveryError struct {
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("bug report delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("bug report delivery failed: HTTP %d", e.Status)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
