package calendar

import (
	"errors"
	"net/http"
)

var ErrValidation = errors.New("validation failed")
var ErrConflict = errors.New("event conflicts with an existing event")
var ErrNotFound = errors.New("not found")
var ErrDuplicateName = errors.New("calendar name already exists")
var ErrInvalidTimezone = errors.New("invalid timezone")
var ErrNoCalendarSelected = errors.New("no calendar selected")

// HTTPStatus maps store errors to the status code the command layer answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTimezone):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, ErrNoCalendarSelected):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
