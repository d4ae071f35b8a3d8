package timeline

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
	httperr "github.com/staffline-lab/staffline/internal/core/errors"
)

// RegisterRoutes registers the timeline HTTP surface.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/employees", s.ListActiveHandler)
	r.GET("/v1/employees/:employee_id/position", s.CurrentPositionHandler)
	r.GET("/v1/employees/:employee_id/history", s.HistoryHandler)
	r.GET("/v1/employees/:employee_id/shares", s.SharesHandler)
	r.GET("/v1/employees/:employee_id/intervals", s.IntervalsHandler)
	r.POST("/v1/history", s.HistoryBatchHandler)
	r.POST("/v1/corrections", s.CorrectionHandler)
}

// historyBatchRequest is the body of POST /v1/history.
type historyBatchRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
	From        v1.Date  `json:"from"`
	To          v1.Date  `json:"to"`
}

// CurrentPositionHandler returns the position effective on as_of (default
// today). An employee with no covering interval yields position=null with
// HTTP 200; absence is an expected outcome, not an error.
func (s *Service) CurrentPositionHandler(c *gin.Context) {
	employeeID := c.Param("employee_id")

	asOf, ok := parseDateQuery(c, "as_of")
	if !ok {
		return
	}

	position, found, err := s.CurrentPosition(c.Request.Context(), employeeID, asOf)
	if err != nil {
		writeStorageError(c, "read current position", err)
		return
	}

	resp := gin.H{"employee_id": employeeID, "position": nil}
	if found {
		resp["position"] = position
	}
	c.JSON(http.StatusOK, resp)
}

// HistoryHandler returns clipped position periods for from..to.
func (s *Service) HistoryHandler(c *gin.Context) {
	employeeID := c.Param("employee_id")

	from, to, ok := parseRangeQuery(c)
	if !ok {
		return
	}

	periods, err := s.HistoryForPeriod(c.Request.Context(), employeeID, from, to)
	if err != nil {
		writeRangeError(c, "read history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"from":        from,
		"to":          to,
		"periods":     periods,
	})
}

// SharesHandler returns per-position day counts and shares of the period.
func (s *Service) SharesHandler(c *gin.Context) {
	employeeID := c.Param("employee_id")

	from, to, ok := parseRangeQuery(c)
	if !ok {
		return
	}

	shares, err := s.PositionShares(c.Request.Context(), employeeID, from, to)
	if err != nil {
		writeRangeError(c, "compute shares", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"from":        from,
		"to":          to,
		"shares":      shares,
	})
}

// IntervalsHandler returns the raw stored timeline for one employee.
func (s *Service) IntervalsHandler(c *gin.Context) {
	employeeID := c.Param("employee_id")

	intervals, err := s.ListIntervals(c.Request.Context(), employeeID)
	if err != nil {
		writeStorageError(c, "list intervals", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"intervals":   intervals,
	})
}

// HistoryBatchHandler serves the payroll aggregator: clipped histories for
// many employees from a single store query.
func (s *Service) HistoryBatchHandler(c *gin.Context) {
	var req historyBatchRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if len(req.EmployeeIDs) == 0 {
		writeValidationError(c, "employee_ids is required")
		return
	}

	byEmployee, err := s.HistoryForPeriodBatch(c.Request.Context(), req.EmployeeIDs, req.From, req.To)
	if err != nil {
		writeRangeError(c, "read batch history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":    req.From,
		"to":      req.To,
		"history": byEmployee,
	})
}

// ListActiveHandler returns all employees with a position in effect on as_of.
func (s *Service) ListActiveHandler(c *gin.Context) {
	asOf, ok := parseDateQuery(c, "as_of")
	if !ok {
		return
	}

	employees, err := s.ListActiveEmployees(c.Request.Context(), asOf)
	if err != nil {
		writeStorageError(c, "list active employees", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// CorrectionHandler applies a manual position change at a past date.
func (s *Service) CorrectionHandler(c *gin.Context) {
	var correction v1.Correction
	if !s.bindJSON(c, &correction) {
		return
	}
	if err := correction.Validate(); err != nil {
		writeValidationError(c, err.Error())
		return
	}

	if err := s.ApplyCorrection(c.Request.Context(), correction); err != nil {
		if errors.Is(err, ErrEffectiveDateInFuture) {
			writeValidationError(c, err.Error())
			return
		}
		writeStorageError(c, "apply correction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

func (s *Service) bindJSON(c *gin.Context, dst interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySizeBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("Invalid JSON body received", "error", err)
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
		})
		return false
	}
	return true
}

func parseDateQuery(c *gin.Context, name string) (v1.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return v1.Date{}, true
	}
	d, err := v1.ParseDate(raw)
	if err != nil {
		writeValidationError(c, err.Error())
		return v1.Date{}, false
	}
	return d, true
}

func parseRangeQuery(c *gin.Context) (from, to v1.Date, ok bool) {
	from, ok = parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok = parseDateQuery(c, "to")
	if !ok {
		return
	}
	if from.IsZero() || to.IsZero() {
		writeValidationError(c, "from and to query parameters are required")
		return v1.Date{}, v1.Date{}, false
	}
	return from, to, true
}

func writeRangeError(c *gin.Context, action string, err error) {
	if errors.Is(err, ErrInvalidDateRange) {
		writeValidationError(c, err.Error())
		return
	}
	writeStorageError(c, action, err)
}

func writeValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpValidationError,
		Message:   message,
	})
}

func writeStorageError(c *gin.Context, action string, err error) {
	slog.Error("Timeline request failed", "action", action, "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "storage failure",
	})
}
