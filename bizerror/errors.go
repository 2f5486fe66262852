package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyTerminal     = errors.New("order is already in a terminal status")
	ErrCapacityExceeded    = errors.New("worker capacity exceeded")
	ErrRemoteWriteFailed   = errors.New("remote write failed")
	ErrRedundantTransition = errors.New("order is already in the requested status")
	ErrNotStarted          = errors.New("order processing has not started")
	ErrUnknownStatus       = errors.New("unknown order status")
	ErrTooManyRequests     = errors.New("too many requests")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

const (
	OperationAssign       = "assign"
	OperationAssignToSelf = "self-assign"
	OperationUnassign     = "unassign"
	OperationStatusUpdate = "status-update"
)

// DispatchError names the dispatch operation that failed, Cause carries one of the sentinel errors above.
type DispatchError struct {
	Operation string
	OrderID   string
	Cause     error
}

func NewDispatchError(operation, orderID string, cause error) *DispatchError {
	return &DispatchError{Operation: operation, OrderID: orderID, Cause: cause}
}

func (e *DispatchError) Error() string {
	msg := e.Operation + " failed"
	if e.OrderID != "" {
		msg += " for order " + e.OrderID
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

func (e *DispatchError) Respond() *BizErrorDetail {
	status, code := http.StatusInternalServerError, "dispatch.failed"
	var badParam *ErrBadParam
	switch {
	case errors.As(e.Cause, &badParam):
		status, code = http.StatusBadRequest, "common.bad_param"
	case errors.Is(e.Cause, ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "common.unauthenticated"
	case errors.Is(e.Cause, ErrForbidden):
		status, code = http.StatusForbidden, "security.forbidden"
	case errors.Is(e.Cause, ErrNotFound):
		status, code = http.StatusNotFound, "common.record_not_found"
	case errors.Is(e.Cause, ErrAlreadyTerminal):
		status, code = http.StatusConflict, "dispatch.already_terminal"
	case errors.Is(e.Cause, ErrCapacityExceeded):
		status, code = http.StatusConflict, "dispatch.capacity_exceeded"
	case errors.Is(e.Cause, ErrNotStarted):
		status, code = http.StatusConflict, "dispatch.not_started"
	case errors.Is(e.Cause, ErrRedundantTransition):
		status, code = http.StatusConflict, "dispatch.redundant_transition"
	case errors.Is(e.Cause, ErrRemoteWriteFailed):
		status, code = http.StatusBadGateway, "dispatch.remote_write_failed"
	}
	return &BizErrorDetail{Status: status, Code: code, Message: e.Error(),
		Data: map[string]string{"operation": e.Operation}, Cause: e.Cause}
}

// RemoteWriteFailed wraps a remote service error so that it matches ErrRemoteWriteFailed and still exposes the cause.
func RemoteWriteFailed(cause error) error {
	if cause == nil {
		return ErrRemoteWriteFailed
	}
	return &remoteWriteError{cause: cause}
}

type remoteWriteError struct {
	cause error
}

func (e *remoteWriteError) Error() string {
	return ErrRemoteWriteFailed.Error() + ": " + e.cause.Error()
}

func (e *remoteWriteError) Is(target error) bool {
	return target == ErrRemoteWriteFailed
}

func (e *remoteWriteError) Unwrap() error {
	return e.cause
}
