package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput        ErrorCode = "invalid_input"
	InvalidAccountID    ErrorCode = "invalid_account_id"
	InvalidAmount       ErrorCode = "invalid_amount"
	AlreadyExists       ErrorCode = "already_exists"
	NotFound            ErrorCode = "not_found"
	InsufficientBalance ErrorCode = "insufficient_balance"
	SameAccount         ErrorCode = "same_account"
	CorruptRecord       ErrorCode = "corrupt_record"
	IdentityUnavailable ErrorCode = "identity_unavailable"
	QueryUnavailable    ErrorCode = "query_unavailable"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the status the HTTP surface reports.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAccountID, InvalidAmount, SameAccount:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case InsufficientBalance:
		return http.StatusUnprocessableEntity
	case IdentityUnavailable:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAccountID    = NewAppError(InvalidAccountID, "invalid account id")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "invalid amount")
	ErrAccountExists       = NewAppError(AlreadyExists, "account already exists")
	ErrAccountNotFound     = NewAppError(NotFound, "account not found")
	ErrInsufficientBalance = NewAppError(InsufficientBalance, "insufficient balance")
	ErrSameAccount         = NewAppError(SameAccount, "source and destination accounts are the same")
	ErrCorruptRecord       = NewAppError(CorruptRecord, "stored account record is malformed")
	ErrNoIdentity          = NewAppError(IdentityUnavailable, "no caller identity in invocation context")
	ErrQueryUnavailable    = NewAppError(QueryUnavailable, "range query unavailable")
)
