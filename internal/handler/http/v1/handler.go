package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	reportService service.ReportService
	logger        *logrus.Logger
	validate      *validator.Validate
	cfg           *config.Config
}

func NewHandler(reportService service.ReportService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportService: reportService,
		logger:        logger,
		validate:      validator.New(),
		cfg:           cfg,
	}
}

// bindAndValidate разбирает тело запроса и проверяет его. При ошибке ответ уже записан.
func (h *Handler) bindAndValidate(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// writeServiceError переводит ошибку сервиса в HTTP-статус
func writeServiceError(c *gin.Context, log *logrus.Entry, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		log.WithError(err).Warn(msg)
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	default:
		log.WithError(err).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Update user location
// @Description Upsert the last known location of a reporter. observedAt is the time the backend received the request.
// @Tags Device
// @Accept json
// @Produce json
// @Param location body LocationRequest true "Location update request"
// @Success 200 {object} LocationResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /user/location [post]
func (h *Handler) recordLocation(c *gin.Context) {
	var input LocationRequest
	log := h.logger.WithField("method", "recordLocation")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	ping, err := h.reportService.RecordLocation(c.Request.Context(), input.UserID, *input.Latitude, *input.Longitude)
	if err != nil {
		writeServiceError(c, log, err, "Failed to record location in service")
		return
	}
	c.JSON(http.StatusOK, ModelToLocationResponse(ping))
}

// @Summary Submit an incident report
// @Description Store a new incident report. The backend assigns its own id and receipt time.
// @Tags Device
// @Accept json
// @Produce json
// @Param report body CreateReportRequest true "Incident report"
// @Success 200 {object} CreateReportResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [post]
func (h *Handler) createReport(c *gin.Context) {
	var input CreateReportRequest
	log := h.logger.WithField("method", "createReport")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	model := DTOToReportModel(input)
	if err := h.reportService.RecordReport(c.Request.Context(), model); err != nil {
		writeServiceError(c, log, err, "Failed to record report in service")
		return
	}
	c.JSON(http.StatusOK, CreateReportResponse{Success: true, Report: ModelToReportResponse(model)})
}

// @Summary Check for a corroborated threat
// @Description Check whether independent reports of the same type near the given point confirm a threat.
// @Tags Device
// @Accept json
// @Produce json
// @Param location body ThreatCheckRequest true "Threat check request"
// @Success 200 {object} ThreatCheckResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /predictive/check [post]
func (h *Handler) checkThreat(c *gin.Context) {
	var input ThreatCheckRequest
	log := h.logger.WithField("method", "checkThreat")

	if !h.bindAndValidate(c, log, &input) {
		return
	}

	signal, err := h.reportService.CheckThreat(c.Request.Context(), input.UserID, *input.Latitude, *input.Longitude)
	if err != nil {
		writeServiceError(c, log, err, "Failed to check threat in service")
		return
	}
	c.JSON(http.StatusOK, SignalToThreatResponse(signal))
}

// @Summary Get a list of reports
// @Description Get a paginated list of reports, newest first. Requires API key.
// @Tags Operator
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} ReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [get]
func (h *Handler) listReports(c *gin.Context) {
	log := h.logger.WithField("method", "listReports")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	reports, err := h.reportService.ListReports(c.Request.Context(), page, pageSize)
	if err != nil {
		writeServiceError(c, log, err, "Failed to list reports from service")
		return
	}

	c.JSON(http.StatusOK, ModelsToReportResponses(reports))
}

// @Summary Get report by ID
// @Description Get a single report by its backend ID. Requires API key.
// @Tags Operator
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports/{id} [get]
func (h *Handler) getReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "getReport").WithField("id", id)

	report, err := h.reportService.GetReport(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, log, err, "Failed to get report from service")
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report))
}

// @Summary Confirm a report
// @Description Mark a report as confirmed by an operator. Requires API key.
// @Tags Operator
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports/{id}/confirm [post]
func (h *Handler) confirmReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "confirmReport").WithField("id", id)

	if err := h.reportService.ConfirmReport(c.Request.Context(), id); err != nil {
		writeServiceError(c, log, err, "Failed to confirm report in service")
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get reporting statistics
// @Description Get the number of active reporters and received reports in the stats window. Requires API key.
// @Tags Operator
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.reportService.GetStats(c.Request.Context())
	if err != nil {
		writeServiceError(c, log, err, "Failed to get stats from service")
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		ActiveReporters: stats.ActiveReporters,
		ReportsReceived: stats.ReportsReceived,
		WindowMinutes:   stats.WindowMinutes,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
