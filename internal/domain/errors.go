// Package domain defines core types, interfaces, and errors for the key vault.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UnauthenticatedError indicates the request carries no caller identity.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictKind names the invariant a ConflictError collided with.
type ConflictKind string

// Conflict kinds surfaced to callers.
const (
	ConflictGeneric            ConflictKind = "CONFLICT"
	ConflictAlreadyShared      ConflictKind = "ALREADY_SHARED"
	ConflictAlreadyInitialized ConflictKind = "ALREADY_INITIALIZED"
	ConflictDuplicateName      ConflictKind = "DUPLICATE_NAME"
	ConflictRoleAssigned       ConflictKind = "ROLE_ASSIGNED"
)

// ConflictError indicates a conflict with an existing invariant (e.g., duplicate resource).
type ConflictError struct {
	Kind    ConflictKind
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ReferentialConflictError indicates a delete was refused because live rows still
// reference the target.
type ReferentialConflictError struct {
	Message string
}

func (e *ReferentialConflictError) Error() string { return e.Message }

// VaultOp identifies the secret store operation that failed.
type VaultOp string

// Vault operations.
const (
	VaultOpWrite VaultOp = "write"
	VaultOpRead  VaultOp = "read"
)

// VaultError wraps a secret store failure. The wrapped error is for server-side
// logs only; Error() never includes it.
type VaultError struct {
	Op  VaultOp
	Err error
}

func (e *VaultError) Error() string {
	if e.Op == VaultOpWrite {
		return "secret store write failed"
	}
	return "secret store read failed"
}

func (e *VaultError) Unwrap() error { return e.Err }

// Retryable reports that the caller may retry the request.
func (e *VaultError) Retryable() bool { return true }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an UnauthenticatedError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a generic ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Kind: ConflictGeneric, Message: fmt.Sprintf(format, args...)}
}

// ErrConflictKind creates a ConflictError of the given kind.
func ErrConflictKind(kind ConflictKind, format string, args ...interface{}) *ConflictError {
	return &ConflictError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrReferentialConflict creates a ReferentialConflictError with a formatted message.
func ErrReferentialConflict(format string, args ...interface{}) *ReferentialConflictError {
	return &ReferentialConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrVaultWrite wraps a secret store write failure.
func ErrVaultWrite(err error) *VaultError {
	return &VaultError{Op: VaultOpWrite, Err: err}
}

// ErrVaultRead wraps a secret store read failure.
func ErrVaultRead(err error) *VaultError {
	return &VaultError{Op: VaultOpRead, Err: err}
}
