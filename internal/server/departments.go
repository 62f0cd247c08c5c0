package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
)

type DepartmentHandler struct {
	svc deptdomain.Service
}

func NewDepartmentHandler(svc deptdomain.Service) *DepartmentHandler {
	return &DepartmentHandler{svc: svc}
}

func (h *DepartmentHandler) List(c *gin.Context) {
	departments, err := h.svc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": departments})
}

func (h *DepartmentHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *DepartmentHandler) Get(c *gin.Context) {
	id, err := departmentID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dept, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dept})
}

func (h *DepartmentHandler) Create(c *gin.Context) {
	var req deptdomain.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}

	dept, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": dept})
}

func (h *DepartmentHandler) Update(c *gin.Context) {
	id, err := departmentID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req deptdomain.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, validation.Errors{"body": err})
		return
	}
	req.ID = id

	dept, err := h.svc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dept})
}

func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, err := departmentID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func departmentID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, deptdomain.ErrNotFound
	}
	return id, nil
}
