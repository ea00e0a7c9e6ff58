package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/ingest"
	"github.com/ctolnik/work-eye/server/reporting"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ingestService interface {
	Decode(body []byte) (activity.Snapshot, error)
	Ingest(ctx context.Context, s activity.Snapshot) (ingest.Result, error)
	Register(ctx context.Context, r activity.Registration) (bool, error)
	Heartbeat(ctx context.Context, deviceID string) error
}

type reportService interface {
	AppUsage(ctx context.Context, deviceID, period string, limit int) (reporting.AppUsageReport, error)
	Historical(ctx context.Context, deviceID, rng, granularity string) (reporting.HistoricalReport, error)
	ProductivityTrends(ctx context.Context, deviceID, rng string) (reporting.TrendsReport, error)
	DailySummaries(ctx context.Context, deviceID string, days int) (reporting.DailySummaryReport, error)
	Export(ctx context.Context, deviceID, rng string) (reporting.ExportReport, error)
	Fleet(ctx context.Context) (reporting.FleetReport, error)
	EmployeeDetail(ctx context.Context, deviceID string) (reporting.EmployeeDetailReport, error)
	RecentActivity(ctx context.Context) (reporting.ActivityFeed, error)
	ActivityLog(ctx context.Context, deviceID string, offset, limit int) (reporting.ActivityLogPage, error)
	Screenshots(ctx context.Context, deviceID, date string) (reporting.ScreenshotList, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	ingest  ingestService
	reports reportService
	stats   *StatsCache
	db      pinger
	// nil when screenshot storage is disabled
	screenshots screenshotSource
}

func (h *handlers) register(router *gin.Engine) {
	router.GET("/health", h.healthHandler)

	api := router.Group("/api")
	{
		api.POST("/upload-activity", h.uploadActivityHandler)
		api.POST("/register-device", h.registerDeviceHandler)
		api.POST("/device/heartbeat", h.heartbeatHandler)

		api.GET("/employees", h.getEmployeesHandler)
		api.GET("/employee/:device_id", h.getEmployeeHandler)
		api.GET("/employee/:device_id/screenshots", h.getEmployeeScreenshotsHandler)
		api.GET("/stats", h.getStatsHandler)
		api.GET("/activity", h.getRecentActivityHandler)
		api.GET("/activity-log", h.getActivityLogHandler)
		api.GET("/screenshots/*key", h.getScreenshotHandler)

		analytics := api.Group("/analytics")
		analytics.GET("/app-usage/:device_id", h.getAppUsageHandler)
		analytics.GET("/historical/:device_id", h.getHistoricalHandler)
		analytics.GET("/productivity-trends/:device_id", h.getProductivityTrendsHandler)
		analytics.GET("/daily-summary/:device_id", h.getDailySummaryHandler)
		analytics.GET("/export-data/:device_id", h.getExportHandler)
	}
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, activity.ErrMalformedInput):
		status = http.StatusBadRequest
	case errors.Is(err, activity.ErrUnverified), errors.Is(err, activity.ErrInactive):
		status = http.StatusForbidden
	case errors.Is(err, activity.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, activity.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		zapctx.Error(ctx, msg, zap.Error(err))
	} else {
		zapctx.Warn(ctx, msg, zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (h *handlers) healthHandler(c *gin.Context) {
	status, database := http.StatusOK, "connected"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		zapctx.Warn(c.Request.Context(), "Database ping failed", zap.Error(err))
		status, database = http.StatusServiceUnavailable, "disconnected"
	}
	c.JSON(status, gin.H{
		"status":    "online",
		"database":  database,
		"timestamp": time.Now(),
	})
}

// ========== Ingest Handlers ==========

func (h *handlers) uploadActivityHandler(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := c.GetRawData()
	if err != nil {
		respondError(c, "Failed to read activity body", errors.Join(activity.ErrMalformedInput, err))
		return
	}

	snapshot, err := h.ingest.Decode(body)
	if err != nil {
		respondError(c, "Invalid activity payload", err)
		return
	}

	res, err := h.ingest.Ingest(ctx, snapshot)
	if err != nil {
		respondError(c, "Failed to ingest activity", err)
		return
	}

	resp := gin.H{"success": true, "event_id": res.EventID}
	if len(res.FailedSteps) > 0 {
		resp["failed_steps"] = res.FailedSteps
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) registerDeviceHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var reg activity.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		respondError(c, "Invalid registration request", errors.Join(activity.ErrMalformedInput, err))
		return
	}

	created, err := h.ingest.Register(ctx, reg)
	if err != nil {
		respondError(c, "Failed to register device", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"device_id": reg.DeviceID,
		"created":   created,
	})
}

func (h *handlers) heartbeatHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "Invalid heartbeat request", errors.Join(activity.ErrMalformedInput, err))
		return
	}

	if err := h.ingest.Heartbeat(ctx, req.DeviceID); err != nil {
		respondError(c, "Failed to record heartbeat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ========== Analytics Handlers ==========

func (h *handlers) getAppUsageHandler(c *gin.Context) {
	limit, err := queryInt(c, "limit", reporting.DefaultAppLimit)
	if err != nil {
		respondError(c, "Invalid limit", err)
		return
	}

	report, err := h.reports.AppUsage(c.Request.Context(), c.Param("device_id"), c.Query("period"), limit)
	if err != nil {
		respondError(c, "Failed to get app usage", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getHistoricalHandler(c *gin.Context) {
	report, err := h.reports.Historical(c.Request.Context(), c.Param("device_id"), c.Query("range"), c.Query("granularity"))
	if err != nil {
		respondError(c, "Failed to get historical data", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getProductivityTrendsHandler(c *gin.Context) {
	report, err := h.reports.ProductivityTrends(c.Request.Context(), c.Param("device_id"), c.Query("range"))
	if err != nil {
		respondError(c, "Failed to get productivity trends", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getDailySummaryHandler(c *gin.Context) {
	days, err := queryInt(c, "days", reporting.DefaultDays)
	if err != nil {
		respondError(c, "Invalid days", err)
		return
	}

	report, err := h.reports.DailySummaries(c.Request.Context(), c.Param("device_id"), days)
	if err != nil {
		respondError(c, "Failed to get daily summary", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getExportHandler(c *gin.Context) {
	report, err := h.reports.Export(c.Request.Context(), c.Param("device_id"), c.Query("range"))
	if err != nil {
		respondError(c, "Failed to export data", err)
		return
	}
	respondData(c, report)
}

// ========== Dashboard Handlers ==========

func (h *handlers) getEmployeesHandler(c *gin.Context) {
	report, err := h.reports.Fleet(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to get employees", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getEmployeeHandler(c *gin.Context) {
	report, err := h.reports.EmployeeDetail(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		respondError(c, "Failed to get employee", err)
		return
	}
	respondData(c, report)
}

func (h *handlers) getEmployeeScreenshotsHandler(c *gin.Context) {
	list, err := h.reports.Screenshots(c.Request.Context(), c.Param("device_id"), c.Query("date"))
	if err != nil {
		respondError(c, "Failed to list screenshots", err)
		return
	}
	respondData(c, list)
}

func (h *handlers) getRecentActivityHandler(c *gin.Context) {
	feed, err := h.reports.RecentActivity(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to get recent activity", err)
		return
	}
	respondData(c, feed)
}

func (h *handlers) getActivityLogHandler(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, "Invalid offset", err)
		return
	}
	limit, err := queryInt(c, "limit", reporting.DefaultLogLimit)
	if err != nil {
		respondError(c, "Invalid limit", err)
		return
	}

	page, err := h.reports.ActivityLog(c.Request.Context(), c.Query("device_id"), offset, limit)
	if err != nil {
		respondError(c, "Failed to get activity log", err)
		return
	}
	respondData(c, page)
}

func (h *handlers) getStatsHandler(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to get stats", err)
		return
	}
	respondData(c, stats)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(activity.ErrMalformedInput, err)
	}
	return n, nil
}
