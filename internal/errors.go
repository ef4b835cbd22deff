package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeGateway    ErrorType = "GATEWAY_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidMethod    ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidTaxID     ErrorCode = "INVALID_TAX_ID"

	ErrCodeQuoteNotFound      ErrorCode = "QUOTE_NOT_FOUND"
	ErrCodeQuoteNotApproved   ErrorCode = "QUOTE_NOT_APPROVED"
	ErrCodePaymentNotFound    ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeSupplierNotFound   ErrorCode = "SUPPLIER_NOT_FOUND"
	ErrCodeClientNotFound     ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodeMissingCustomer    ErrorCode = "MISSING_CUSTOMER_DATA"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeDuplicateCharge    ErrorCode = "CHARGE_ALREADY_EXISTS"
	ErrCodeDuplicateOperation ErrorCode = "DUPLICATE_OPERATION"
	ErrCodeCodeAlreadyUsed    ErrorCode = "CODE_ALREADY_USED"
	ErrCodeCodeExpired        ErrorCode = "CODE_EXPIRED"
	ErrCodeCodeNotFound       ErrorCode = "CODE_NOT_FOUND"
	ErrCodeTransferAlreadyDone ErrorCode = "TRANSFER_ALREADY_COMPLETED"

	ErrCodeInvalidDestination    ErrorCode = "INVALID_PAYOUT_DESTINATION"
	ErrCodeMissingPayoutDetails  ErrorCode = "MISSING_PAYOUT_DETAILS"
	ErrCodeGatewayRejected       ErrorCode = "GATEWAY_REJECTED"
	ErrCodeTransferFailed        ErrorCode = "TRANSFER_FAILED"
	ErrCodePaymentNotReleasable  ErrorCode = "PAYMENT_NOT_RELEASABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			if len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewGatewayError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeGateway,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrQuoteNotFound    = NewNotFoundError("quote not found", ErrCodeQuoteNotFound)
	ErrQuoteNotApproved = NewValidationError("quote is not approved for charging", ErrCodeQuoteNotApproved)
	ErrPaymentNotFound  = NewNotFoundError("payment not found", ErrCodePaymentNotFound)
	ErrSupplierNotFound = NewNotFoundError("supplier not found", ErrCodeSupplierNotFound)
	ErrClientNotFound   = NewNotFoundError("client not found", ErrCodeClientNotFound)

	ErrDuplicateCharge = NewConflictError("a payment already exists for this quote", ErrCodeDuplicateCharge)
	ErrCodeAlreadyUsed = NewConflictError("delivery confirmation code already used", ErrCodeCodeAlreadyUsed)
	ErrCodeExpired     = NewValidationError("delivery confirmation code expired", ErrCodeCodeExpired)
	ErrCodeNotFound    = NewNotFoundError("delivery confirmation code not found", ErrCodeCodeNotFound)

	ErrTransferAlreadyDone  = NewConflictError("payout transfer already completed for this payment", ErrCodeTransferAlreadyDone)
	ErrTransferPending      = NewConflictError("payout transfer already pending confirmation", ErrCodeDuplicateOperation)
	ErrMissingPayoutDetails = NewValidationError("supplier has no complete bank account or PIX key", ErrCodeMissingPayoutDetails)
	ErrPaymentNotReleasable = NewConflictError("payment is not in a releasable status", ErrCodePaymentNotReleasable)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
