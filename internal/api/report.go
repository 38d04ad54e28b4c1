package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"esgscope/internal/calculator"
	"esgscope/internal/exporter"
	"esgscope/internal/model"
	"esgscope/internal/util"
)

// CategoryRow 分类表格行
type CategoryRow struct {
	Name    string      `json:"name"`
	Score   model.Score `json:"score"`
	Display string      `json:"display"`
}

// ESGLabel ESG 饼图标签
type ESGLabel struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
	Display string  `json:"display"`
}

// ReportResponse 报告数据（模型 + 图表序列 + 显示文本）
type ReportResponse struct {
	State          string            `json:"state"`
	HasReport      bool              `json:"hasReport"`
	Filename       string            `json:"filename"`
	Overall        model.Score       `json:"overall"`
	OverallDisplay string            `json:"overallDisplay"`
	Rating         calculator.Rating `json:"rating"`
	Categories     []CategoryRow     `json:"categories"`
	ESG            *model.ESG        `json:"esg"`
	ESGLabels      []ESGLabel        `json:"esgLabels"`
	Charts         calculator.Charts `json:"charts"`
	Error          string            `json:"error"`
	Revision       uint64            `json:"revision"`
	ResolvedAt     *time.Time        `json:"resolvedAt,omitempty"`
}

// GetReport 当前报告
// GET /api/report
func (h *Handler) GetReport(c *gin.Context) {
	snap := h.view.Snapshot()
	sc := snap.Scorecard

	resp := ReportResponse{
		State:          string(snap.State),
		HasReport:      snap.HasReport(),
		Filename:       sc.Filename,
		Overall:        sc.Overall,
		OverallDisplay: util.FormatScore(sc.Overall),
		Rating:         snap.Rating,
		Categories:     make([]CategoryRow, 0, len(sc.Categories)),
		ESG:            sc.ESG,
		ESGLabels:      []ESGLabel{},
		Charts:         snap.Charts,
		Error:          snap.Error,
		Revision:       snap.Revision,
	}
	for _, cat := range sc.Categories {
		resp.Categories = append(resp.Categories, CategoryRow{
			Name:    cat.Name,
			Score:   cat.Score,
			Display: util.FormatScore(cat.Score),
		})
	}
	for _, s := range snap.Charts.ESG.Slices {
		resp.ESGLabels = append(resp.ESGLabels, ESGLabel{
			Label:   s.Label,
			Percent: s.Value,
			Color:   s.Color,
			Display: fmt.Sprintf("%s: %s", s.Label, util.FormatShare(s.Value)),
		})
	}
	if !snap.ResolvedAt.IsZero() {
		t := snap.ResolvedAt
		resp.ResolvedAt = &t
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadImage 下载 PNG（inline=1 时用于页面预览）
// GET /api/report/image
func (h *Handler) DownloadImage(c *gin.Context) {
	h.download(c, exporter.FormatImage)
}

// DownloadDocument 下载 PDF
// GET /api/report/document
func (h *Handler) DownloadDocument(c *gin.Context) {
	h.download(c, exporter.FormatDocument)
}

// DownloadWorkbook 下载 Excel
// GET /api/report/workbook
func (h *Handler) DownloadWorkbook(c *gin.Context) {
	h.download(c, exporter.FormatWorkbook)
}

func (h *Handler) download(c *gin.Context, format exporter.Format) {
	art, err := h.exporter.Export(exporter.ExportOptions{Format: format})
	if err != nil {
		if errors.Is(err, exporter.ErrNoReport) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[api] export %s failed: %v", format, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed: " + err.Error()})
		return
	}

	disposition := buildContentDisposition(art.Filename)
	if c.Query("inline") == "1" {
		disposition = "inline" + strings.TrimPrefix(disposition, "attachment")
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

// buildContentDisposition 附件头：ASCII 兜底文件名 + RFC 5987 UTF-8 文件名
func buildContentDisposition(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20 || r > 0x7e:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	fallback := b.String()
	if fallback == filename {
		return fmt.Sprintf("attachment; filename=\"%s\"", fallback)
	}
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", fallback, url.PathEscape(filename))
}
