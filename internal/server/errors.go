package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = apperror.Unauthenticated("unauthorized")
	ErrNotFound     = apperror.NotFound("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return apperror.Validation("request", "invalid_request", "invalid request")
}

func invalidParamError(field string) error {
	return apperror.Validation(field, "invalid_"+field, "invalid value")
}

var kindStatus = map[apperror.Kind]int{
	apperror.KindValidation:      http.StatusBadRequest,
	apperror.KindUnauthenticated: http.StatusUnauthorized,
	apperror.KindPermission:      http.StatusForbidden,
	apperror.KindNotFound:        http.StatusNotFound,
	apperror.KindConflict:        http.StatusConflict,
	apperror.KindRateLimited:     http.StatusTooManyRequests,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return internalError()
	}

	if appErr, ok := apperror.As(err); ok {
		status, known := kindStatus[appErr.Kind]
		if !known {
			return internalError()
		}
		payload := errorPayload{
			Type:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		}
		if appErr.Kind == apperror.KindValidation {
			payload.Message = "validation error"
			payload.Errors = validationDetails(appErr)
		}
		return status, payload
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Field:   fe.Field(),
				Code:    "invalid_" + fe.Field(),
				Message: "failed " + fe.Tag() + " check",
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperror.KindValidation),
			Message: "validation error",
			Errors:  out,
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(apperror.KindNotFound),
			Code:    "not_found",
			Message: "not found",
		}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    string(apperror.KindConflict),
			Code:    "duplicate",
			Message: "a record with the same unique fields already exists",
		}
	default:
		return internalError()
	}
}

func internalError() (int, errorPayload) {
	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func validationDetails(appErr *apperror.Error) []ValidationError {
	if len(appErr.Details) == 0 {
		return []ValidationError{{
			Field:   appErr.Field,
			Code:    appErr.Code,
			Message: appErr.Message,
		}}
	}
	out := make([]ValidationError, 0, len(appErr.Details))
	for _, d := range appErr.Details {
		out = append(out, ValidationError{Field: d.Field, Code: d.Code, Message: d.Message})
	}
	return out
}

// classifyErrorForLog feeds the request logger; internal errors keep no code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}
