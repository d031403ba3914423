package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeAlreadyProcessed    Code = "ALREADY_PROCESSED"
	CodeDeliveryFailed      Code = "DELIVERY_FAILED"
	CodeBlocked             Code = "USER_BLOCKED"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeNotFound: {
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeInsufficientBalance: {
		Retryable:     false,
		PublicMessage: "balance too low",
	},
	CodeAlreadyProcessed: {
		Retryable:     false,
		PublicMessage: "submission already processed",
	},
	CodeDeliveryFailed: {
		Retryable:     false,
		PublicMessage: "delivery failed, payment refunded",
	},
	CodeBlocked: {
		Retryable:     false,
		PublicMessage: "access blocked",
	},
	CodeInvalidInput: {
		Retryable:     false,
		PublicMessage: "invalid input",
	},
	CodeInternal: {
		Retryable:     true,
		PublicMessage: "internal error",
	},
	CodeDependency: {
		Retryable:     true,
		PublicMessage: "dependency unavailable",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// InsufficientBalanceDetails carries the priced call-to-action data for a
// denied pay-per-view request.
type InsufficientBalanceDetails struct {
	Price     int `json:"price"`
	Balance   int `json:"balance"`
	Shortfall int `json:"shortfall"`
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
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

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
