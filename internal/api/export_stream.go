package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"esgscope/internal/exporter"
)

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportStream 导出报告（SSE 进度 + 完成后提供一次性下载地址）
// POST /api/export/stream?format=image|document|workbook
func (h *Handler) ExportStream(c *gin.Context) {
	format, err := exporter.ParseFormat(c.DefaultQuery("format", string(exporter.FormatDocument)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.view.Snapshot().HasReport() {
		c.JSON(http.StatusConflict, gin.H{"error": exporter.ErrNoReport.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming is not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
	fail := func(msg string) {
		send(exportProgressEvent{
			Type:      "error",
			Message:   msg,
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
	}

	send(exportProgressEvent{
		Type:      "start",
		Message:   "export started",
		Data:      map[string]any{"format": format},
		Timestamp: time.Now(),
	})

	art, err := h.exporter.Export(exporter.ExportOptions{
		Format: format,
		Progress: func(p exporter.ProgressEvent) {
			if p.Percent >= 100 {
				return
			}
			send(exportProgressEvent{
				Type:      "progress",
				Message:   p.Stage,
				Data:      map[string]any{"percent": p.Percent},
				Timestamp: time.Now(),
			})
		},
	})
	if err != nil {
		if errors.Is(err, exporter.ErrNoReport) {
			fail(err.Error())
			return
		}
		fail("export failed: " + err.Error())
		return
	}

	dir := h.exportDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("esgscope_export_%s.%s", uuid.NewString(), format.Extension()))
	if err := os.WriteFile(path, art.Data, 0644); err != nil {
		_ = os.Remove(path)
		fail("write export file failed: " + err.Error())
		return
	}

	token := h.downloads.put(path, art.Filename, art.ContentType, exportDownloadTTL)
	prefix := strings.TrimSuffix(c.FullPath(), "/export/stream")
	downloadURL := fmt.Sprintf("%s/export/download/%s", prefix, token)

	send(exportProgressEvent{
		Type:    "done",
		Message: "export finished",
		Data: map[string]any{
			"percent":     100,
			"filename":    art.Filename,
			"downloadUrl": downloadURL,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}
	defer os.Remove(item.filePath)

	data, err := os.ReadFile(item.filePath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "export file not found"})
		return
	}

	c.Header("Content-Disposition", buildContentDisposition(item.filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, item.contentType, data)
}
