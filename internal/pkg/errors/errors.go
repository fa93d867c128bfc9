package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict: resource already exists")
	ErrInternal        = errors.New("internal server error")
	ErrRateLimited     = errors.New("too many requests")
	ErrSessionExpired  = errors.New("session expired or invalid")
	ErrBadRequest      = errors.New("bad request")
	ErrDuplicateEntry  = errors.New("duplicate entry")
	ErrExpired         = errors.New("resource has expired")
	ErrAlreadyAccepted = errors.New("invitation already accepted")
	ErrUpstream        = errors.New("upstream service error")
	ErrUpstreamTimeout = errors.New("upstream service timed out")
)

// Provisioning step codes returned by the tenant orchestrator. The caller can
// retry the same request safely for any code except SubdomainTaken.
const (
	CodeSubdomainTaken     = "SUBDOMAIN_TAKEN"
	CodeTenantCreateFailed = "TENANT_CREATE_FAILED"
	CodeMembershipFailed   = "MEMBERSHIP_FAILED"
	CodeRoleFailed         = "ROLE_FAILED"
	CodeProvisioningFailed = "PROVISIONING_FAILED"
)

// ProvisionError tags an orchestration failure with the step that failed so
// retries can resume from partial state.
type ProvisionError struct {
	Code string
	Step string
	Err  error
}

func (e *ProvisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provisioning failed at %s (%s): %v", e.Step, e.Code, e.Err)
	}
	return fmt.Sprintf("provisioning failed at %s (%s)", e.Step, e.Code)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

func NewProvisionError(code, step string, err error) *ProvisionError {
	return &ProvisionError{Code: code, Step: step, Err: err}
}

// AsProvisionError extracts a ProvisionError from an error chain.
func AsProvisionError(err error) (*ProvisionError, bool) {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
