package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/jobs"
	"github.com/smallbiznis/workforce/internal/report"
)

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// AbortWithError records err on the context and stops the handler chain;
// the error handling middleware renders it.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandlingMiddleware renders the last recorded error after the
// handlers ran. With debug set, internal errors leak their message.
func ErrorHandlingMiddleware(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, payload := mapError(c.Errors.Last().Err, debug)
		c.JSON(status, payload)
	}
}

func mapError(err error, debug bool) (int, errorResponse) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return http.StatusUnprocessableEntity, errorResponse{Message: "validation failed", Errors: fields}

	case errors.Is(err, empdomain.ErrNotFound),
		errors.Is(err, deptdomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: err.Error()}

	case errors.Is(err, empdomain.ErrEmailTaken),
		errors.Is(err, deptdomain.ErrNameTaken),
		errors.Is(err, deptdomain.ErrInUse):
		return http.StatusConflict, errorResponse{Message: err.Error()}

	case errors.Is(err, empdomain.ErrUnknownDepartment):
		return http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"department_id": empdomain.ErrUnknownDepartment.Error()},
		}

	case errors.Is(err, report.ErrUnknownType):
		return http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"type": err.Error()},
		}

	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrNotStarted):
		return http.StatusServiceUnavailable, errorResponse{Message: err.Error()}

	default:
		if debug {
			return http.StatusInternalServerError, errorResponse{Message: err.Error()}
		}
		return http.StatusInternalServerError, errorResponse{Message: "internal server error"}
	}
}

// classifyError feeds the request logger's error fields.
func classifyError(err error) (string, string) {
	status, _ := mapError(err, false)
	switch {
	case status == http.StatusUnprocessableEntity:
		return "validation", "422"
	case status == http.StatusNotFound:
		return "not_found", "404"
	case status == http.StatusConflict:
		return "conflict", "409"
	case status == http.StatusServiceUnavailable:
		return "unavailable", "503"
	default:
		return "internal", "500"
	}
}
