package rentals

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeOverReturn        Code = "QUANTITY_OVER_RETURN"
	CodeInternal          Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrInsufficientStock(have, want int) *APIError {
	return &APIError{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: %d on hand, %d requested", have, want),
	}
}

func ErrOverReturn(outstanding int) *APIError {
	return &APIError{
		Code:    CodeOverReturn,
		Message: fmt.Sprintf("return quantity exceeds outstanding quantity (%d)", outstanding),
	}
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict, CodeInsufficientStock, CodeOverReturn:
			return 409
		default:
			return 500
		}
	}
	return 500
}
