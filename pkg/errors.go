package common

import (
	"errors"
	"fmt"
)

// ServiceError is an error returned by the remote storage service, as opposed to
// a failure raised locally (bad input, I/O, network before a response).
type ServiceError struct {
	Provider   string
	StatusCode int
	ErrorCode  string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service error: http code %d, error code %s", e.Provider, e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("%s service error: http code %d, error code %s: %v", e.Provider, e.StatusCode, e.ErrorCode, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// AsServiceError reports whether err carries a ServiceError anywhere in its chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
