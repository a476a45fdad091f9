package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts the first failing field into VALIDATION_ERROR.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "email":
			msg = fmt.Sprintf("%s must be a valid email", field)
		case "datetime":
			msg = fmt.Sprintf("%s must be a date formatted %s", field, fe.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		return appErrors.WithField(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg), field)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func fieldError(base *appErrors.Error, field, message string) error {
	return appErrors.WithField(appErrors.Clone(base, message), field)
}

// storeError maps repository failures onto API errors. Unknown failures are
// logged with their detail and surfaced as a generic upstream error.
func storeError(logger *zap.Logger, operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return appErrors.Wrap(err, appErrors.ErrStoreConflict.Code, appErrors.ErrStoreConflict.Status, appErrors.ErrStoreConflict.Message)
	case errors.Is(err, repository.ErrRecordNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, appErrors.ErrNotFound.Message)
	}
	logger.Error("store call failed", zap.String("operation", operation), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
}

// errorCode returns the API code of err for metric labels.
func errorCode(err error) string {
	if err == nil {
		return OutcomeAccepted
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}

// Clock supplies the current time and the calendar location used for
// "today" comparisons.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func trimAll(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
