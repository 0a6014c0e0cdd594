package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ValidationError reports malformed or missing input. It is raised before
// any store access and maps to HTTP 400 with field-level detail.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation creates a ValidationError with optional field details.
func NewValidation(message string, details map[string]string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// Validationf creates a ValidationError without field details.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent referenced entity. "No coverage found"
// during an eligibility check is not a NotFoundError; that is a normal
// isEligible=false result.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound creates a NotFoundError for the given entity and id.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IntegrityError reports a violated invariant, e.g. a history write that
// failed after its parent mutation. The enclosing transaction must have
// been aborted before this error is surfaced.
type IntegrityError struct {
	Message string
	Err     error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Integrity wraps err as an IntegrityError.
func Integrity(message string, err error) *IntegrityError {
	return &IntegrityError{Message: message, Err: err}
}

// CapacityExceededError reports a deduction rejected because it would push
// a scheme past its annual limit for the financial year.
type CapacityExceededError struct {
	SchemeID      string
	FinancialYear string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("scheme %s annual limit exceeded for financial year %s", e.SchemeID, e.FinancialYear)
}

// CapacityExceeded creates a CapacityExceededError.
func CapacityExceeded(schemeID, financialYear string) *CapacityExceededError {
	return &CapacityExceededError{SchemeID: schemeID, FinancialYear: financialYear}
}

// StoreUnavailableError reports an unreachable database. The engine does
// not retry; callers apply their own policy.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// StoreUnavailable wraps err as a StoreUnavailableError.
func StoreUnavailable(err error) *StoreUnavailableError {
	return &StoreUnavailableError{Err: err}
}

// HTTPErrorHandler maps the error taxonomy to the JSON contract:
// 400 {error, details}, 404 {error}, 409 {error}, 500 {error, message}.
// echo.HTTPError values pass through with their own status.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			validationErr *ValidationError
			notFoundErr   *NotFoundError
			capacityErr   *CapacityExceededError
			httpErr       *echo.HTTPError
		)

		switch {
		case errors.As(err, &validationErr):
			body := map[string]interface{}{"error": validationErr.Message}
			if len(validationErr.Details) > 0 {
				body["details"] = validationErr.Details
			}
			_ = c.JSON(http.StatusBadRequest, body)
		case errors.As(err, &notFoundErr):
			_ = c.JSON(http.StatusNotFound, map[string]interface{}{"error": notFoundErr.Error()})
		case errors.As(err, &capacityErr):
			_ = c.JSON(http.StatusConflict, map[string]interface{}{"error": capacityErr.Error()})
		case errors.As(err, &httpErr):
			_ = c.JSON(httpErr.Code, map[string]interface{}{"error": fmt.Sprintf("%v", httpErr.Message)})
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
			_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error":   "internal server error",
				"message": err.Error(),
			})
		}
	}
}
