package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-slot-api/internal/models"
	"github.com/noah-isme/campus-slot-api/internal/service"
	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
	"github.com/noah-isme/campus-slot-api/pkg/export"
	"github.com/noah-isme/campus-slot-api/pkg/response"
)

type exportService interface {
	AllocatableReport(ctx context.Context, campusID int64, format export.Format, cutoff string, on *models.Date) (*service.ExportResult, error)
	Calendar(ctx context.Context, campusID int64, on *models.Date) (*service.ExportResult, error)
}

// ExportHandler serves slot listings as downloadable documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Allocatable godoc
// @Summary Export allocatable slots
// @Tags Exports
// @Produce text/csv,application/pdf
// @Param campusId path int true "Campus ID"
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Only slots ending after this time (HH:MM:SS)"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Success 200 {file} file
// @Router /campuses/{campusId}/allocatable-slots/export [get]
func (h *ExportHandler) Allocatable(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	on, ok := dateQuery(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	if err != nil {
		response.Error(c, appErrors.Validation(err, "format must be csv or pdf"))
		return
	}
	result, err := h.service.AllocatableReport(c.Request.Context(), campusID, format, strings.TrimSpace(c.Query("from")), on)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Calendar godoc
// @Summary Campus slot calendar
// @Tags Exports
// @Produce text/calendar
// @Param campusId path int true "Campus ID"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Success 200 {file} file
// @Router /campuses/{campusId}/calendar.ics [get]
func (h *ExportHandler) Calendar(c *gin.Context) {
	campusID, ok := campusIDParam(c)
	if !ok {
		return
	}
	on, ok := dateQuery(c)
	if !ok {
		return
	}
	result, err := h.service.Calendar(c.Request.Context(), campusID, on)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
