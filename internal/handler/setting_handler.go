package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/service"
)

type SettingHandler struct {
	policyService *service.PolicyService
}

func NewSettingHandler(policyService *service.PolicyService) *SettingHandler {
	return &SettingHandler{policyService: policyService}
}

// GetMakeupPolicy godoc
// GET /api/v1/admin/settings/makeup-policy
// Returns the effective policy: stored settings layered over the defaults.
func (h *SettingHandler) GetMakeupPolicy(c *gin.Context) {
	policy, err := h.policyService.GetMakeupPolicy(c.Request.Context())
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"policy": policy})
}
