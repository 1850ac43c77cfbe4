package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tutorhub/class-engine/internal/middleware"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
)

// AuditTrail reads the recorded corrections of an entity.
type AuditTrail interface {
	ListForEntity(ctx context.Context, entityType, entityID string) ([]model.AuditEvent, error)
}

// MakeupHandler drives the makeup workflow.
type MakeupHandler struct {
	makeupService *service.MakeupService
	audits        AuditTrail
}

// NewMakeupHandler creates a new MakeupHandler.
func NewMakeupHandler(makeupService *service.MakeupService, audits AuditTrail) *MakeupHandler {
	return &MakeupHandler{makeupService: makeupService, audits: audits}
}

// ListMakeups godoc
// GET /api/v1/admin/makeups?student_id=&class_id=&status=&page=1&per_page=20
func (h *MakeupHandler) ListMakeups(c *gin.Context) {
	studentID, ok := intQuery(c, "student_id")
	if !ok {
		return
	}
	classID, ok := intQuery(c, "class_id")
	if !ok {
		return
	}
	status := model.MakeupStatus(c.Query("status"))
	switch status {
	case "", model.MakeupStatusPending, model.MakeupStatusScheduled, model.MakeupStatusCompleted, model.MakeupStatusCancelled:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"status": "status must be one of [pending scheduled completed cancelled]"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	page = max(page, 1)
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	makeups, total, err := h.makeupService.List(c.Request.Context(), model.MakeupFilter{
		StudentID: studentID,
		ClassID:   classID,
		Status:    status,
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, makeups, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// CreateMakeup godoc
// POST /api/v1/admin/makeups
// Requests a makeup for a missed session. Bypassing the policy needs the
// override permission.
func (h *MakeupHandler) CreateMakeup(c *gin.Context) {
	var req model.CreateMakeupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if req.BypassPolicy {
		claims := middleware.GetClaims(c)
		if claims == nil || !claims.HasPermission(string(model.PermissionMakeupsOverride)) {
			response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
	}

	makeup, err := h.makeupService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"makeup": makeup})
}

// GetMakeup godoc
// GET /api/v1/admin/makeups/:id
func (h *MakeupHandler) GetMakeup(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	makeup, err := h.makeupService.Get(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup": makeup})
}

// AuditLog godoc
// GET /api/v1/admin/makeups/:id/audit
func (h *MakeupHandler) AuditLog(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.makeupService.Get(ctx, id); err != nil {
		response.FailWithError(c, err)
		return
	}

	events, err := h.audits.ListForEntity(ctx, "makeup", id.String())
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"audit": events})
}

// ScheduleMakeup godoc
// POST /api/v1/admin/makeups/:id/schedule
// Places a pending makeup in a free slot.
func (h *MakeupHandler) ScheduleMakeup(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.ScheduleMakeupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	makeup, err := h.makeupService.Schedule(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup": makeup})
}

// RecordAttendance godoc
// POST /api/v1/admin/makeups/:id/attendance
func (h *MakeupHandler) RecordAttendance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.MakeupAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	makeup, err := h.makeupService.RecordAttendance(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup": makeup})
}

// RevertAttendance godoc
// POST /api/v1/admin/makeups/:id/revert
// Reopens a completed makeup. The reason is written to the audit log.
func (h *MakeupHandler) RevertAttendance(c *gin.Context) {
	h.withReason(c, h.makeupService.RevertAttendance)
}

// CancelMakeup godoc
// POST /api/v1/admin/makeups/:id/cancel
func (h *MakeupHandler) CancelMakeup(c *gin.Context) {
	h.withReason(c, h.makeupService.Cancel)
}

type reasonAction func(ctx context.Context, id uuid.UUID, reason string, actorID int) (*model.Makeup, error)

func (h *MakeupHandler) withReason(c *gin.Context, action reasonAction) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	makeup, err := action(c.Request.Context(), id, req.Reason, middleware.ActorID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup": makeup})
}
