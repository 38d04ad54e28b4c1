package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"esgscope/internal/report"
)

const (
	documentField        = "document"
	defaultMaxUploadSize = 32 << 20
)

// SelectFile 选择待上传文档
// POST /api/file (multipart: document)
func (h *Handler) SelectFile(c *gin.Context) {
	doc, err := h.readDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.view.SelectFile(doc); err != nil {
		c.JSON(statusForViewError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.view.Snapshot())
}

// Submit 上传已选择的文档
// POST /api/submit
func (h *Handler) Submit(c *gin.Context) {
	snap, err := h.view.Submit(c.Request.Context())
	if err != nil {
		c.JSON(statusForViewError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Upload 选择并立即上传
// POST /api/upload (multipart: document)
func (h *Handler) Upload(c *gin.Context) {
	doc, err := h.readDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.view.SelectFile(doc); err != nil {
		c.JSON(statusForViewError(err), gin.H{"error": err.Error()})
		return
	}
	h.Submit(c)
}

// readDocument 读取 multipart 中的文档；未选择文件视为输入错误
func (h *Handler) readDocument(c *gin.Context) (report.Document, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+(1<<20))

	fh, err := c.FormFile(documentField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return report.Document{}, fmt.Errorf("file exceeds %d bytes", h.maxUploadSize)
		}
		return report.Document{}, report.ErrNoFile
	}
	if fh.Size > h.maxUploadSize {
		return report.Document{}, fmt.Errorf("file exceeds %d bytes", h.maxUploadSize)
	}

	f, err := fh.Open()
	if err != nil {
		return report.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return report.Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return report.Document{}, report.ErrNoFile
	}
	return report.Document{Name: fh.Filename, Data: data}, nil
}

func statusForViewError(err error) int {
	switch {
	case errors.Is(err, report.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrSubmitInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
