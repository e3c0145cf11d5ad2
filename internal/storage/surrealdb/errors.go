package surrealdb

import (
	"errors"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// isNotFoundError reports whether err means the record does not exist.
// The driver surfaces this as plain text, so match on the message.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
