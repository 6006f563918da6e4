package vizql

import (
	"fmt"
)

// ErrorType represents the category of error raised by the engine.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeExecution  ErrorType = "execution"
	ErrorTypeSplitter   ErrorType = "splitter"
	ErrorTypeInternal   ErrorType = "internal"
)

// EngineError is the single error type raised by every package in this
// module. Distinct failure modes are distinguished by Type/Code, not by
// separate Go types.
type EngineError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Column  string         `json:"column,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *EngineError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("[%s:%s] column %q: %s", e.Type, e.Code, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

func (e *EngineError) WithDetails(details map[string]any) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *EngineError) WithDetail(key string, value any) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *EngineError) WithCause(cause error) *EngineError {
	e.Cause = cause
	return e
}

func (e *EngineError) WithColumn(columnID string) *EngineError {
	e.Column = columnID
	return e
}

// Error codes, grouped by the component that raises them.
const (
	// Query validation (§4.5)
	ErrCodeUnknownColumn        = "UNKNOWN_COLUMN"
	ErrCodeDuplicateColumn      = "DUPLICATE_COLUMN"
	ErrCodeAggregationMisplaced = "AGGREGATION_MISPLACED"
	ErrCodeUngroupedColumn      = "UNGROUPED_COLUMN_SELECTED"
	ErrCodeInvalidFilter        = "INVALID_FILTER"
	ErrCodeInvalidSort          = "INVALID_SORT"
	ErrCodeInvalidPagination    = "INVALID_PAGINATION"
	ErrCodeInvalidLabel         = "INVALID_LABEL"
	ErrCodeInvalidFormat        = "INVALID_FORMAT_PATTERN"
	ErrCodeCyclicColumnRef      = "CYCLIC_COLUMN_REFERENCE"

	// Cell/type system (§4.1, §4.2)
	ErrCodeCellTypeMismatch  = "CELL_TYPE_MISMATCH"
	ErrCodeRowArityMismatch  = "ROW_ARITY_MISMATCH"
	ErrCodeUnsupportedValue  = "UNSUPPORTED_VALUE_TYPE"
	ErrCodeTypeMismatch      = "TYPE_MISMATCH"
	ErrCodeUnsupportedRegexp = "UNSUPPORTED_REGEXP"

	// Execution (§4.6-4.11)
	ErrCodeAggregationFailed = "AGGREGATION_FAILED"
	ErrCodeScalarFnFailed    = "SCALAR_FUNCTION_FAILED"
	ErrCodeSortFailed        = "SORT_FAILED"

	// Splitter (§4.12)
	ErrCodeUnsplittableQuery = "UNSPLITTABLE_QUERY"
	ErrCodeCapabilityDenied  = "CAPABILITY_DENIED"
	ErrCodeDataSourceFailed  = "DATA_SOURCE_FAILED"

	// Config / internal
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewEngineError creates a bare EngineError.
func NewEngineError(errorType ErrorType, code, message string) *EngineError {
	return &EngineError{Type: errorType, Code: code, Message: message, Details: make(map[string]any)}
}

// NewInvalidQueryError reports a query that failed validation (§4.5, §7).
func NewInvalidQueryError(code, message string) *EngineError {
	return NewEngineError(ErrorTypeValidation, code, message)
}

// NewTypeMismatchError reports an operation applied to a value of the wrong
// ValueType (§4.1, §7).
func NewTypeMismatchError(column string, expected, actual ValueType) *EngineError {
	return NewEngineError(ErrorTypeValidation, ErrCodeTypeMismatch,
		fmt.Sprintf("expected %s, got %s", expected, actual)).WithColumn(column)
}

// NewDataSourceError wraps a failure reported by an external DataSource
// during pushdown execution (§6, §7).
func NewDataSourceError(message string, cause error) *EngineError {
	return NewEngineError(ErrorTypeSplitter, ErrCodeDataSourceFailed, message).WithCause(cause)
}

// NewNotSupportedError reports a clause the datasource package's SQL builder
// cannot render for pushdown (a scalar function or an unsupported operator);
// the error is returned from the data source's query execution (§7).
func NewNotSupportedError(feature string) *EngineError {
	return NewEngineError(ErrorTypeSplitter, ErrCodeCapabilityDenied,
		fmt.Sprintf("feature not supported by data source: %s", feature))
}

func NewInternalError(message string, cause error) *EngineError {
	return NewEngineError(ErrorTypeInternal, ErrCodeInternalError, message).WithCause(cause)
}

// ValidationErrors is the error Query.Validate returns (§4.5). Validate stops
// at the first offence, so it carries exactly one entry; the slice shape is
// grounded on the teacher's ValidationErrors/BatchErrors pattern (errors.go).
type ValidationErrors struct {
	Errors []*EngineError `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*EngineError, 0)}
}

func (ve *ValidationErrors) Add(err *EngineError) {
	ve.Errors = append(ve.Errors, err)
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	if len(ve.Errors) == 1 {
		return ve.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors, first: %s", len(ve.Errors), ve.Errors[0].Error())
}

// ToError returns ve as an error if it carries any, nil otherwise — lets
// callers write `if err := ve.ToError(); err != nil { ... }`.
func (ve *ValidationErrors) ToError() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// IsValidationError reports whether err is a validation-category EngineError.
func IsValidationError(err error) bool {
	if ee, ok := err.(*EngineError); ok {
		return ee.Type == ErrorTypeValidation
	}
	return false
}

// IsNotSupported reports whether err signals a DataSource capability gap
// (ErrCodeCapabilityDenied). The splitter does not consult it: it decides
// what to push down from the declared capability alone.
func IsNotSupported(err error) bool {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code == ErrCodeCapabilityDenied
	}
	return false
}
