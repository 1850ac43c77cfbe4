package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/schedule"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
)

// HolidayHandler maintains the holiday calendar.
type HolidayHandler struct {
	holidayService *service.HolidayService
	now            service.Clock
}

// NewHolidayHandler creates a new HolidayHandler.
func NewHolidayHandler(holidayService *service.HolidayService, now service.Clock) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService, now: now}
}

// ListHolidays godoc
// GET /api/v1/admin/holidays?from=YYYY-MM-DD&to=YYYY-MM-DD
// Defaults to the coming year.
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	from, ok := dateQuery(c, "from", schedule.Day(h.now()))
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to", from.AddDate(1, 0, 0))
	if !ok {
		return
	}
	if to.Before(from) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"to": "to must not be before from"})
		return
	}

	holidays, err := h.holidayService.List(c.Request.Context(), from, to)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"holidays": holidays})
}

// CreateHoliday godoc
// POST /api/v1/admin/holidays
// Adds a holiday and queues a calendar regeneration.
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	var req model.CreateHolidayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	holiday, err := h.holidayService.Create(c.Request.Context(), req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"holiday": holiday})
}

// DeleteHoliday godoc
// DELETE /api/v1/admin/holidays/:id
func (h *HolidayHandler) DeleteHoliday(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.holidayService.Delete(c.Request.Context(), id); err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "holiday deleted successfully"})
}
