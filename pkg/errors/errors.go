// Package errors carries the error codes the API exposes and how each one is
// rendered to clients.
package errors

import (
	stdErrors "errors"
	"net/http"
	"strings"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeNoPurchasableItems Code = "NO_PURCHASABLE_ITEMS"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodePurchaseRequired   Code = "PURCHASE_REQUIRED"
	CodeAlreadyReviewed    Code = "ALREADY_REVIEWED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is presented over HTTP. Details attached to an
// error are only sent to the client when DetailsAllowed is set.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	plain       = 0
	withDetails = 1 << iota
	retryable
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		DetailsAllowed: flags&withDetails != 0,
		Retryable:      flags&retryable != 0,
	}
}

var registry = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", plain),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", plain),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", plain),
	CodeConflict:           meta(http.StatusConflict, "conflict detected", plain),
	CodeEmptyCart:          meta(http.StatusUnprocessableEntity, "cart is empty", plain),
	CodeNoPurchasableItems: meta(http.StatusUnprocessableEntity, "no purchasable items in cart", withDetails),
	CodeInvalidTransition:  meta(http.StatusConflict, "order status transition not allowed", withDetails),
	CodePurchaseRequired:   meta(http.StatusForbidden, "a completed purchase is required", plain),
	CodeAlreadyReviewed:    meta(http.StatusConflict, "purchase already reviewed", plain),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:          meta(http.StatusTooManyRequests, "rate limit exceeded", plain),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := registry[code]; ok {
		return m
	}
	return registry[CodeInternal]
}

// Error is a coded error. The message is for logs; clients see the public
// message of the code instead.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details on e in place and returns it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.code))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Label is the lower-cased code, for metric labels. Uncoded errors give "".
func Label(err error) string {
	if typed := As(err); typed != nil {
		return strings.ToLower(string(typed.code))
	}
	return ""
}
