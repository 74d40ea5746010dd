// credinet/internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind clasifica los errores de negocio que el núcleo expone hacia afuera.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindInsufficientCredit Kind = "INSUFFICIENT_CREDIT"
	KindDuplicatePending   Kind = "DUPLICATE_PENDING"
	KindClientInDefault    Kind = "CLIENT_IN_DEFAULT"
	KindUnsupportedPlan    Kind = "UNSUPPORTED_PLAN"
	KindOverpayment        Kind = "OVERPAYMENT"
	KindInvalidAmount      Kind = "INVALID_AMOUNT"
	KindAlreadyApplied     Kind = "ALREADY_APPLIED"
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
)

// Error es un error de negocio con detalle accionable para el consumidor.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus traduce la clase de error al código HTTP de la frontera.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyApplied:
		return http.StatusConflict
	case KindInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// NewError construye un error de negocio simple.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf construye un error de negocio con formato.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails agrega pares clave-valor al detalle del error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// AsServiceError extrae el *Error de negocio de una cadena de errores.
func AsServiceError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
