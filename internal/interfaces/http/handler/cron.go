package handler

import (
	billingapp "github.com/commerce/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrchestratorFactory builds a per-tenant billing orchestrator
type OrchestratorFactory func(tenantID uuid.UUID) *billingapp.Orchestrator

// CronHandler triggers scheduled billing jobs over HTTP. The route is
// protected by the cron secret middleware; each run is synchronous and
// returns the per-job summary.
type CronHandler struct {
	BaseHandler
	factory OrchestratorFactory
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(factory OrchestratorFactory) *CronHandler {
	return &CronHandler{
		factory: factory,
	}
}

// CronRunRequest selects which job to run
// @Description Request body selecting a job from the catalogue, or "all"
type CronRunRequest struct {
	Job string `json:"job" binding:"required" example:"renew_subscriptions"`
}

// Run godoc
// @ID           runCronJob
// @Summary      Run a scheduled billing job
// @Description  Run one job from the catalogue, or all of them, for the tenant. Jobs are idempotent; reruns are safe.
// @Tags         cron
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body CronRunRequest true "Job selection"
// @Success      200 {object} APIResponse[[]billingapp.JobResult]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /cron/run [post]
func (h *CronHandler) Run(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CronRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orchestrator := h.factory(tenantID)

	if req.Job == "all" {
		results := orchestrator.RunAll(c.Request.Context())
		h.Success(c, gin.H{"results": results})
		return
	}

	result, err := orchestrator.Run(c.Request.Context(), req.Job)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"results": []*billingapp.JobResult{result}})
}

// Jobs godoc
// @ID           listCronJobs
// @Summary      List the job catalogue
// @Description  Return the names of the jobs the cron endpoint accepts
// @Tags         cron
// @Produce      json
// @Success      200 {object} APIResponse[[]string]
// @Security     BearerAuth
// @Router       /cron/jobs [get]
func (h *CronHandler) Jobs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	h.Success(c, gin.H{"jobs": h.factory(tenantID).Jobs()})
}
