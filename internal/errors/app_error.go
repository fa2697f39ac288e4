package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	ErrCodeThirdPartyError   = "THIRD_PARTY_ERROR"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeOutOfStock        = "OUT_OF_STOCK"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeGateway           = "GATEWAY_ERROR"
	ErrCodeGatewayDown       = "GATEWAY_UNAVAILABLE"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
)

// Promo evaluation failures share the PROMO_ prefix.
const (
	ErrCodePromoNotFound         = "PROMO_NOT_FOUND"
	ErrCodePromoExpired          = "PROMO_EXPIRED"
	ErrCodePromoExhausted        = "PROMO_EXHAUSTED"
	ErrCodePromoAlreadyUsed      = "PROMO_ALREADY_USED"
	ErrCodePromoMinimumNotMet    = "PROMO_MINIMUM_NOT_MET"
	ErrCodePromoCategoryMismatch = "PROMO_CATEGORY_MISMATCH"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

// AuthorizationError is returned when the caller may not see a resource. It
// carries no detail about the resource itself.
func AuthorizationError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func DuplicateEntryError(message string) *AppError {
	return NewAppError(ErrCodeDuplicateEntry, message, http.StatusConflict)
}

func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdPartyError, message, http.StatusInternalServerError)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message, http.StatusTooManyRequests)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

func InvalidTransitionError(from, to string) *AppError {
	return NewAppError(ErrCodeInvalidTransition, fmt.Sprintf("Order cannot move from %s to %s", from, to), http.StatusConflict)
}

func OutOfStockError(productName string, available int64) *AppError {
	return NewAppError(ErrCodeOutOfStock, fmt.Sprintf("Only %d of %s left in stock", available, productName), http.StatusConflict)
}

func InsufficientStockError(productName string) *AppError {
	return NewAppError(ErrCodeInsufficientStock, fmt.Sprintf("Insufficient stock for %s", productName), http.StatusConflict)
}

func PromoError(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest)
}

func PromoNotFoundError(code string) *AppError {
	return NewAppError(ErrCodePromoNotFound, fmt.Sprintf("Promo code %s does not exist", code), http.StatusNotFound)
}

func GatewayError(message string) *AppError {
	return NewAppError(ErrCodeGateway, message, http.StatusBadGateway)
}

func GatewayUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeGatewayDown, message, http.StatusServiceUnavailable)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}
