package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/schedule"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
)

// ClassHandler handles class lifecycle and calendar endpoints.
type ClassHandler struct {
	classService      *service.ClassService
	scheduleService   *service.ScheduleService
	attendanceService *service.AttendanceService
	now               service.Clock
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(
	classService *service.ClassService,
	scheduleService *service.ScheduleService,
	attendanceService *service.AttendanceService,
	now service.Clock,
) *ClassHandler {
	return &ClassHandler{
		classService:      classService,
		scheduleService:   scheduleService,
		attendanceService: attendanceService,
		now:               now,
	}
}

// CreateClass godoc
// POST /api/v1/admin/classes
// Creates a draft class.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// GetClass godoc
// GET /api/v1/admin/classes/:id
// Returns the class with the fields that may still be edited.
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.Get(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, class)
}

// UpdateClass godoc
// PUT /api/v1/admin/classes/:id
// Replaces the editable fields of a class.
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// TransitionStatus godoc
// POST /api/v1/admin/classes/:id/status
// Moves a class along its lifecycle.
func (h *ClassHandler) TransitionStatus(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.TransitionClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.TransitionClassStatus(c.Request.Context(), id, req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// EndClass godoc
// POST /api/v1/admin/classes/:id/end
// Completes a class today, cancelling its remaining sessions.
func (h *ClassHandler) EndClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.EndClassNow(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// GenerateSessions godoc
// POST /api/v1/admin/classes/:id/sessions/generate
func (h *ClassHandler) GenerateSessions(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	sessions, err := h.scheduleService.GenerateSessions(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"sessions": sessions})
}

// ListSessions godoc
// GET /api/v1/admin/classes/:id/sessions
func (h *ClassHandler) ListSessions(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	sessions, err := h.scheduleService.ListSessions(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// NextAvailableDate godoc
// GET /api/v1/admin/classes/:id/next-available-date?from=YYYY-MM-DD&until=YYYY-MM-DD
// Finds the first free pattern day after from (default today).
func (h *ClassHandler) NextAvailableDate(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from", schedule.Day(h.now()))
	if !ok {
		return
	}
	until, ok := dateQuery(c, "until", time.Time{})
	if !ok {
		return
	}
	if !until.IsZero() && !until.After(from) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"until": "until must be after from"})
		return
	}

	day, err := h.scheduleService.FindNextAvailableDate(c.Request.Context(), id, from, until)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"date": schedule.KeyOf(day)})
}

// StudentSummary godoc
// GET /api/v1/admin/classes/:id/students/:student_id/summary
func (h *ClassHandler) StudentSummary(c *gin.Context) {
	classID, ok := intParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := intParam(c, "student_id")
	if !ok {
		return
	}

	summary, err := h.attendanceService.StudentAttendanceSummary(c.Request.Context(), classID, studentID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// RegenerateAll godoc
// POST /api/v1/admin/classes/regenerate
// Rebuilds the calendar of every running class, reporting per-class failures.
func (h *ClassHandler) RegenerateAll(c *gin.Context) {
	result, err := h.scheduleService.RegenerateAll(c.Request.Context())
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
