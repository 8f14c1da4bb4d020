package api

import (
	"errors"
	"net/http"

	"isdb/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var alreadyExists *domain.AlreadyExistsError
	var invalidSchema *domain.InvalidSchemaError
	var schemaMismatch *domain.SchemaMismatchError
	var unknownColumn *domain.UnknownColumnError
	var typeMismatch *domain.TypeMismatchError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &alreadyExists):
		return http.StatusConflict
	case errors.As(err, &invalidSchema),
		errors.As(err, &schemaMismatch),
		errors.As(err, &unknownColumn),
		errors.As(err, &typeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
