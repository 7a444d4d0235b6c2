// Package apperror defines the error taxonomy shared by the use cases and
// the HTTP edge.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindStateInvariant Kind = "STATE_INVARIANT"
	KindInfrastructure Kind = "INFRASTRUCTURE"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindForbidden      Kind = "FORBIDDEN"
)

// Codes returned to callers.
const (
	CodeEmptyCart             = "EMPTY_CART"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeInvalidDiscount       = "INVALID_DISCOUNT"
	CodeInvalidPaymentMethod  = "INVALID_PAYMENT_METHOD"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeInvalidReason         = "INVALID_REASON"
	CodeInvalidItems          = "INVALID_ITEMS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeProductNotFound       = "PRODUCT_NOT_FOUND"
	CodeCustomerNotFound      = "CUSTOMER_NOT_FOUND"
	CodeSaleNotFound          = "SALE_NOT_FOUND"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeInsufficientPayment   = "INSUFFICIENT_PAYMENT"
	CodeCreditLimitExceeded   = "CREDIT_LIMIT_EXCEEDED"
	CodePaymentExceedsBalance = "PAYMENT_EXCEEDS_BALANCE"
	CodeAlreadyRefunded       = "ALREADY_REFUNDED"
	CodeItemAlreadyRefunded   = "ITEM_ALREADY_REFUNDED"
	CodeDuplicateSKU          = "DUPLICATE_SKU"
	CodeDuplicateBarcode      = "DUPLICATE_BARCODE"
	CodeNegativeStock         = "NEGATIVE_STOCK"
	CodeInternal              = "INTERNAL_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a detail value, e.g. the available quantity on a stock conflict.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, format string, args ...any) *Error {
	return New(KindValidation, code, fmt.Sprintf(format, args...))
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, fmt.Sprintf(format, args...))
}

func Conflict(code, format string, args ...any) *Error {
	return New(KindConflict, code, fmt.Sprintf(format, args...))
}

func StateInvariant(code, format string, args ...any) *Error {
	return New(KindStateInvariant, code, fmt.Sprintf(format, args...))
}

// Internal wraps a storage or transport failure. The message is safe to show
// to callers; err is kept for logging.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: CodeInternal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, defaulting to infrastructure for errors
// that did not originate in a use case.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInfrastructure
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
