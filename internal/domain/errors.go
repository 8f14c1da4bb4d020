// Package domain defines the core types and errors of the isdb engine.
package domain

import "fmt"

// NotFoundError indicates a table (or other resource) does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AlreadyExistsError indicates a create collided with an existing table.
type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string { return e.Message }

// InvalidSchemaError indicates a malformed schema on table creation.
type InvalidSchemaError struct {
	Message string
}

func (e *InvalidSchemaError) Error() string { return e.Message }

// SchemaMismatchError indicates a row whose shape or types disagree with
// the registered schema.
type SchemaMismatchError struct {
	Message string
}

func (e *SchemaMismatchError) Error() string { return e.Message }

// UnknownColumnError indicates a predicate referenced a column absent from
// the schema it is evaluated against.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// TypeMismatchError indicates a predicate operator was applied to operands
// of incompatible types.
type TypeMismatchError struct {
	Message string
}

func (e *TypeMismatchError) Error() string { return e.Message }

// CorruptError indicates unreadable persisted state. It is fatal at load
// time and never produced by a running operation.
type CorruptError struct {
	Message string
}

func (e *CorruptError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAlreadyExists creates an AlreadyExistsError with a formatted message.
func ErrAlreadyExists(format string, args ...interface{}) *AlreadyExistsError {
	return &AlreadyExistsError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidSchema creates an InvalidSchemaError with a formatted message.
func ErrInvalidSchema(format string, args ...interface{}) *InvalidSchemaError {
	return &InvalidSchemaError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaMismatch creates a SchemaMismatchError with a formatted message.
func ErrSchemaMismatch(format string, args ...interface{}) *SchemaMismatchError {
	return &SchemaMismatchError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnknownColumn creates an UnknownColumnError for the given column name.
func ErrUnknownColumn(column string) *UnknownColumnError {
	return &UnknownColumnError{Column: column}
}

// ErrTypeMismatch creates a TypeMismatchError with a formatted message.
func ErrTypeMismatch(format string, args ...interface{}) *TypeMismatchError {
	return &TypeMismatchError{Message: fmt.Sprintf(format, args...)}
}

// ErrCorrupt creates a CorruptError with a formatted message.
func ErrCorrupt(format string, args ...interface{}) *CorruptError {
	return &CorruptError{Message: fmt.Sprintf(format, args...)}
}
