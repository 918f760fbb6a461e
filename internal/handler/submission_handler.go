package handler

import (
	"net/http"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
}

func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	submissions := router.Group("/api/submissions")
	{
		submissions.POST("", middleware.RequirePermission("submissions.create"), h.Submit)
		submissions.GET("", middleware.RequirePermission("submissions.approve"), h.ListSubmissions)
		submissions.GET("/mine", middleware.RequirePermission("submissions.read"), h.ListMySubmissions)
		submissions.GET("/stats", middleware.RequirePermission("submissions.read"), h.Stats)
		submissions.PUT("/:id/approve", middleware.RequirePermission("submissions.approve"), h.Approve)
		submissions.PUT("/:id/reject", middleware.RequirePermission("submissions.approve"), h.Reject)
		submissions.POST("/:id/attachments", middleware.RequirePermission("submissions.create"), h.AttachFile)
	}
}

// Submit creates a pending work-order report
// @Summary      Submit work-order report
// @Description  Creates a pending maintenance submission awaiting admin review
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSubmissionRequest  true  "Submission payload"
// @Success      201      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	result, err := h.submissionService.Submit(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListSubmissions returns submissions for review, optionally filtered by status
// @Summary      List submissions
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "pending | approved | rejected | integrated"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.SubmissionFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	submissions, total, err := h.submissionService.ListSubmissions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

// ListMySubmissions returns the authenticated user's own submissions
// @Summary      List own submissions
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.SubmissionResponse}
// @Router       /api/submissions/mine [get]
func (h *SubmissionHandler) ListMySubmissions(c *gin.Context) {
	userID := c.GetString("userID")

	submissions, err := h.submissionService.ListMySubmissions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, submissions))
}

// Stats returns submission counters for the authenticated user
// @Summary      Submission statistics
// @Description  Counts by status; approved and integrated are bucketed together
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.SubmissionStats}
// @Router       /api/submissions/stats [get]
func (h *SubmissionHandler) Stats(c *gin.Context) {
	userID := c.GetString("userID")
	// Reviewers may ask for the global counters.
	if c.Query("scope") == "all" {
		userID = ""
	}

	stats, err := h.submissionService.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// Approve integrates a pending submission
// @Summary      Approve submission
// @Description  Atomically writes the realized-maintenance record, advances the scheduled baseline, discounts inventory and flips status to integrated
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true   "Submission ID"
// @Param        payload  body      service.ApproveSubmissionRequest  false  "Optional feedback"
// @Success      200      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/submissions/{id}/approve [put]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetString("userID")

	var req service.ApproveSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body is fine — feedback is optional on approval
		req.Feedback = ""
	}

	result, err := h.submissionService.Approve(c.Request.Context(), id, userID, req.Feedback)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject declines a pending submission with mandatory feedback
// @Summary      Reject submission
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Submission ID"
// @Param        payload  body      service.RejectSubmissionRequest  true  "Feedback (required)"
// @Success      200      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/submissions/{id}/reject [put]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetString("userID")

	var req service.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Feedback = ""
	}

	result, err := h.submissionService.Reject(c.Request.Context(), id, userID, req.Feedback)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AttachFile registers an uploaded attachment for a submission
// @Summary      Attach file
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Submission ID"
// @Param        payload  body      service.AttachmentRequest  true  "Attachment metadata"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/submissions/{id}/attachments [post]
func (h *SubmissionHandler) AttachFile(c *gin.Context) {
	id := c.Param("id")

	var req service.AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.submissionService.AttachFile(c.Request.Context(), id, req); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Attachment registered"))
}
