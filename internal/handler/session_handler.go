package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/middleware"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
)

// SessionHandler handles moves and attendance of single sessions.
type SessionHandler struct {
	scheduleService   *service.ScheduleService
	attendanceService *service.AttendanceService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(scheduleService *service.ScheduleService, attendanceService *service.AttendanceService) *SessionHandler {
	return &SessionHandler{scheduleService: scheduleService, attendanceService: attendanceService}
}

// Reschedule godoc
// POST /api/v1/admin/sessions/:id/reschedule
func (h *SessionHandler) Reschedule(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.RescheduleSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.scheduleService.RescheduleSession(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ListReschedules godoc
// GET /api/v1/admin/sessions/:id/reschedules
func (h *SessionHandler) ListReschedules(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	history, err := h.scheduleService.ListReschedules(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reschedules": history})
}

// RecordAttendance godoc
// PUT /api/v1/admin/sessions/:id/attendance
// Replaces the attendance list of a session.
func (h *SessionHandler) RecordAttendance(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.RecordAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.attendanceService.RecordAttendance(c.Request.Context(), id, req.Records, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}
