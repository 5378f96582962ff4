package ginserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/queries"
)

type errorBody struct {
	Error   faults.Kind `json:"error"`
	Message string      `json:"message"`
}

func renderError(c *gin.Context, err error) {
	kind := faults.KindOf(err)
	if errors.Is(err, commands.ErrHandlerNotFound) || errors.Is(err, queries.ErrHandlerNotFound) {
		kind = faults.Internal
	}
	c.AbortWithStatusJSON(faults.HTTPStatus(kind), errorBody{Error: kind, Message: faults.PublicMessage(err)})
}

func invalidInput(message string) error {
	return faults.New(faults.InvalidInput, message)
}

func badRequest(c *gin.Context, message string) {
	renderError(c, invalidInput(message))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain calendar dates, both read as UTC.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, faults.New(faults.InvalidInput, field+" is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, faults.New(faults.InvalidInput, fmt.Sprintf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field))
}

// parseOptionalDate treats an empty value as unset.
func parseOptionalDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(field, raw)
}
