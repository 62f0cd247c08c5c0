package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/jobs"
)

type EmployeeHandler struct {
	svc     empdomain.Service
	manager jobs.Manager
}

func NewEmployeeHandler(svc empdomain.Service, manager jobs.Manager) *EmployeeHandler {
	return &EmployeeHandler{svc: svc, manager: manager}
}

func (h *EmployeeHandler) List(c *gin.Context) {
	var filter empdomain.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, validation.Errors{"query": err})
		return
	}

	result, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EmployeeHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	data, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *EmployeeHandler) Get(c *gin.Context) {
	includeDeleted := c.Query("include_deleted") == "true"

	resp, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), includeDeleted)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *EmployeeHandler) Create(c *gin.Context) {
	var req empdomain.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (h *EmployeeHandler) Update(c *gin.Context) {
	var req empdomain.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}
	req.ID = c.Param("id")
	req.Replace = c.Request.Method == http.MethodPut

	resp, err := h.svc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *EmployeeHandler) Delete(c *gin.Context) {
	force := c.Query("force") == "true"

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), force); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkCreateRequest struct {
	Employees []empdomain.CreateEmployeeRequest `json:"employees"`
}

// BulkCreate enqueues a background bulk insert and answers immediately
// with the run id.
func (h *EmployeeHandler) BulkCreate(c *gin.Context) {
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}
	if len(req.Employees) == 0 {
		AbortWithError(c, validation.Errors{"employees": validation.ErrRequired})
		return
	}

	employees := req.Employees
	job := jobs.NewBulkOperationJob("employees:bulk-create",
		map[string]any{"count": len(employees)},
		func(ctx context.Context) error {
			_, err := h.svc.BulkCreate(ctx, employees)
			return err
		})

	runID, err := h.manager.Enqueue(c.Request.Context(), job)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": runID, "queue": job.Queue})
}

type bulkDeleteRequest struct {
	IDs   []string `json:"ids"`
	Force bool     `json:"force"`
}

// BulkDelete enqueues a background bulk delete on the serialized
// destructive queue.
func (h *EmployeeHandler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}
	if len(req.IDs) == 0 {
		AbortWithError(c, validation.Errors{"ids": validation.ErrRequired})
		return
	}

	ids, force := req.IDs, req.Force
	job := jobs.NewDestructiveJob("employees:bulk-delete",
		map[string]any{"count": len(ids), "force": force},
		func(ctx context.Context) error {
			_, err := h.svc.BulkDelete(ctx, ids, force)
			return err
		})

	runID, err := h.manager.Enqueue(c.Request.Context(), job)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": runID, "queue": job.Queue})
}
