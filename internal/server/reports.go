package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/smallbiznis/workforce/internal/jobs"
	"github.com/smallbiznis/workforce/internal/report"
)

type ReportHandler struct {
	generator *report.Generator
	manager   jobs.Manager
}

func NewReportHandler(generator *report.Generator, manager jobs.Manager) *ReportHandler {
	return &ReportHandler{generator: generator, manager: manager}
}

// Generate enqueues a CSV export on the reports queue. The request type is
// validated synchronously so bad requests fail fast instead of in the job.
func (h *ReportHandler) Generate(c *gin.Context) {
	var req report.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}
	if req.Type == "" {
		req.Type = report.TypeEmployeeList
	}
	if err := validateReportRequest(req); err != nil {
		AbortWithError(c, err)
		return
	}

	job := jobs.NewReportJob("reports:employees",
		map[string]any{"type": req.Type, "department_id": req.DepartmentID},
		func(ctx context.Context) error {
			_, err := h.generator.Generate(ctx, req)
			return err
		})

	runID, err := h.manager.Enqueue(c.Request.Context(), job)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": runID, "queue": job.Queue, "type": req.Type})
}

func validateReportRequest(req report.Request) error {
	known := false
	for _, t := range report.Types() {
		if req.Type == t {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", report.ErrUnknownType, req.Type)
	}
	if req.DepartmentID < 0 {
		return validation.Errors{"department_id": validation.NewError("validation_invalid", "must be a positive id")}
	}
	return nil
}

type JobsHandler struct {
	manager jobs.Manager
}

func NewJobsHandler(manager jobs.Manager) *JobsHandler {
	return &JobsHandler{manager: manager}
}

func (h *JobsHandler) Status(c *gin.Context) {
	status, err := h.manager.Status(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
