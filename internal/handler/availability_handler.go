package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
)

// AvailabilityHandler answers double-booking questions before a commit.
type AvailabilityHandler struct {
	availabilityService *service.AvailabilityService
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(availabilityService *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

// CheckRoom godoc
// POST /api/v1/admin/availability/rooms
// Lists every class that would collide with a recurring room booking.
func (h *AvailabilityHandler) CheckRoom(c *gin.Context) {
	var req model.RoomAvailabilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.availabilityService.CheckRoomAvailability(c.Request.Context(), req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CheckSlot godoc
// POST /api/v1/admin/availability/slots
// Lists every makeup that would collide with a single-date booking.
func (h *AvailabilityHandler) CheckSlot(c *gin.Context) {
	var req model.SlotAvailabilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.availabilityService.CheckSlotRequest(c.Request.Context(), req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
