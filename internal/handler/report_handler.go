package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-attendance-api/internal/service"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
	"github.com/noah-isme/college-attendance-api/pkg/response"
)

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Stats godoc
// @Summary Register-wide attendance statistics
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.reports.Stats(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Dashboard godoc
// @Summary Admin dashboard counts
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	counts, err := h.reports.Dashboard(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// ExportStats godoc
// @Summary Export attendance statistics
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/attendance/export [get]
func (h *ReportHandler) ExportStats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, mimeType, err := h.reports.ExportStats(c.Request.Context(), claims.Actor(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attendance-report.%s\"", format))
	c.Data(http.StatusOK, mimeType, payload)
}

// ExportSheet godoc
// @Summary Export a course's attendance sheet for one date
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Course ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/courses/{id}/attendance/export [get]
func (h *ReportHandler) ExportSheet(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, mimeType, err := h.reports.ExportSheet(c.Request.Context(), claims.Actor(), c.Param("id"), c.Query("date"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attendance-sheet.%s\"", format))
	c.Data(http.StatusOK, mimeType, payload)
}
