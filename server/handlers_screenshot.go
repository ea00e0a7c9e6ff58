package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ctolnik/work-eye/server/storage"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type screenshotSource interface {
	OpenScreenshot(ctx context.Context, key string) (io.ReadCloser, storage.ScreenshotInfo, error)
}

// getScreenshotHandler streams a stored screenshot by its object key (proxy from MinIO)
func (h *handlers) getScreenshotHandler(c *gin.Context) {
	ctx := c.Request.Context()
	key := strings.TrimPrefix(c.Param("key"), "/")

	if h.screenshots == nil {
		zapctx.Warn(ctx, "Screenshot requested but storage is disabled", zap.String("key", key))
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "screenshot storage disabled"})
		return
	}

	object, info, err := h.screenshots.OpenScreenshot(ctx, key)
	if errors.Is(err, storage.ErrScreenshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		zapctx.Error(ctx, "Failed to get screenshot from storage", zap.Error(err), zap.String("key", key))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get screenshot"})
		return
	}
	defer object.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	zapctx.Debug(ctx, "Serving screenshot", zap.String("key", key), zap.Int64("size", info.Size))

	c.Header("Cache-Control", "private, max-age=86400")
	c.DataFromReader(http.StatusOK, info.Size, contentType, object, nil)
}
