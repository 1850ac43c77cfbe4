package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// intParam reads a positive integer path parameter. On failure the error
// response is already written.
func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// uuidParam reads a UUID path parameter. On failure the error response is
// already written.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// dateQuery reads an optional YYYY-MM-DD query parameter. A missing value
// yields fallback.
func dateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{name: name + " must be a date in YYYY-MM-DD format"})
		return time.Time{}, false
	}
	return d, true
}

// intQuery reads an optional non-negative integer query parameter.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{name: name + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
