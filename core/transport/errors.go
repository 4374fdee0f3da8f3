package transport

import (
	"errors"
	"fmt"
)

// TransportError is a connection or timeout failure; no response was
// received from the service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-success HTTP status. Detail holds the service's
// `detail` payload when one was sent.
type ServiceError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("non-OK HTTP status: %s", e.Status)
	}
	return fmt.Sprintf("non-OK HTTP status: %s: %s", e.Status, e.Detail)
}

// MalformedResponseError is a response that could not be decoded or is
// missing expected fields.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed response: " + e.Reason
	}
	return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsService(err error) bool {
	var target *ServiceError
	return errors.As(err, &target)
}

func IsMalformed(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}

// Classify names the failure class of err for logs and span attributes.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsTransport(err):
		return "transport"
	case IsService(err):
		return "service"
	case IsMalformed(err):
		return "malformed_response"
	default:
		return "unknown"
	}
}
