package error

import (
	"fmt"
	"net/http"
)

// RemoteUnavailableError reports a gateway call that timed out, failed at the
// transport level or got a 5xx. Callers decide whether to retry.
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (err *RemoteUnavailableError) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("gateway unavailable during %s", err.Op)
	}
	return fmt.Sprintf("gateway unavailable during %s: %v", err.Op, err.Err)
}

func (err *RemoteUnavailableError) Unwrap() error {
	return err.Err
}

func (err *RemoteUnavailableError) ErrCode() string {
	return "REMOTE_UNAVAILABLE"
}

func (err *RemoteUnavailableError) StatusCode() int {
	return http.StatusServiceUnavailable
}

// InstanceConflictError means the gateway already has an instance with that name.
type InstanceConflictError string

func (err InstanceConflictError) Error() string {
	return fmt.Sprintf("instance %q already exists", string(err))
}

func (err InstanceConflictError) ErrCode() string {
	return "INSTANCE_CONFLICT"
}

func (err InstanceConflictError) StatusCode() int {
	return http.StatusConflict
}

// InstanceNotFoundError means the gateway does not know the instance.
type InstanceNotFoundError string

func (err InstanceNotFoundError) Error() string {
	return fmt.Sprintf("instance %q does not exist", string(err))
}

func (err InstanceNotFoundError) ErrCode() string {
	return "INSTANCE_NOT_FOUND"
}

func (err InstanceNotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// ProviderError is any other non-2xx answer from the gateway.
type ProviderError struct {
	Op      string
	Status  int
	Message string
}

func (err *ProviderError) Error() string {
	return fmt.Sprintf("gateway rejected %s (%d): %s", err.Op, err.Status, err.Message)
}

func (err *ProviderError) ErrCode() string {
	return "PROVIDER_ERROR"
}

func (err *ProviderError) StatusCode() int {
	return http.StatusBadGateway
}
