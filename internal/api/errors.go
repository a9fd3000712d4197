package api

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"foodshare_backend/internal/shared/apperr"
)

// ExposeErrorDetails adds the underlying error text to 5xx responses.
// Only enabled in development.
var ExposeErrorDetails = false

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse and aborts the handler chain.
// Unclassified and store errors are logged and reported without internal detail.
func WriteError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = &apperr.Error{Kind: apperr.KindUnknown, Err: err}
	}

	status := StatusOf(ae.Kind)
	resp := ErrorResponse{
		Error:  ae.Message,
		Code:   ae.Kind.String(),
		Fields: ae.Fields,
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote_addr", c.ClientIP(),
		)
		if ae.Kind != apperr.KindUpstream || resp.Error == "" {
			resp.Error = "internal server error"
		}
		if ExposeErrorDetails {
			resp.Details = err.Error()
		}
	}

	c.AbortWithStatusJSON(status, resp)
}

// BindingError converts a gin binding failure into a validation error with
// one entry per offending field. A body cut off by http.MaxBytesReader is
// reported as too large.
func BindingError(err error) *apperr.Error {
	if IsBodyTooLarge(err) {
		return apperr.TooLarge(MsgBodyTooLarge)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request body", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return apperr.Validation("invalid request", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must have exactly " + fe.Param() + " elements"
	default:
		return "failed on '" + fe.Tag() + "'"
	}
}

// MsgBodyTooLarge is the error message for bodies over the route limit.
const MsgBodyTooLarge = "request body too large"

// IsBodyTooLarge reports whether err came from reading past an http.MaxBytesReader limit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

var registerTagNames sync.Once

// RegisterJSONTagNames makes gin's validator report JSON field names.
// Repeated calls are no-ops.
func RegisterJSONTagNames() {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(JSONTagName)
		}
	})
}

// JSONTagName returns the JSON name of a struct field, falling back to the Go name.
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}
