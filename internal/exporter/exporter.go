package exporter

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"esgscope/internal/report"
	"esgscope/internal/util"
)

// ErrNoReport 当前没有成功的报告可导出
var ErrNoReport = errors.New("no report available to export")

// Format 导出格式
type Format string

const (
	FormatImage    Format = "image"
	FormatDocument Format = "document"
	FormatWorkbook Format = "workbook"
)

// ParseFormat 解析导出格式，兼容扩展名写法
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "png":
		return FormatImage, nil
	case "document", "pdf":
		return FormatDocument, nil
	case "workbook", "xlsx":
		return FormatWorkbook, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Extension 文件扩展名
func (f Format) Extension() string {
	switch f {
	case FormatImage:
		return "png"
	case FormatDocument:
		return "pdf"
	case FormatWorkbook:
		return "xlsx"
	default:
		return "bin"
	}
}

// ContentType 下载时的 MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatImage:
		return "image/png"
	case FormatDocument:
		return "application/pdf"
	case FormatWorkbook:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Options 导出参数
type Options struct {
	Scale    float64 // 位图超采样倍数
	PageSize string  // PDF 纸张规格，如 A4、Letter
	MarginMM float64 // PDF 页边距（毫米）
}

// DefaultOptions 默认导出参数：2 倍超采样，A4 横向，10mm 边距
func DefaultOptions() Options {
	return Options{
		Scale:    2,
		PageSize: "A4",
		MarginMM: 10,
	}
}

// Source 当前报告来源，导出时读取调用时刻的快照
type Source interface {
	Snapshot() report.Snapshot
}

// Artifact 导出产物
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Revision    uint64
}

// Exporter 报告导出器
type Exporter struct {
	source   Source
	renderer *report.Renderer
	opts     Options
}

// NewExporter 创建导出器
func NewExporter(source Source, renderer *report.Renderer, opts Options) *Exporter {
	def := DefaultOptions()
	if !(opts.Scale > 0) {
		opts.Scale = def.Scale
	}
	if strings.TrimSpace(opts.PageSize) == "" {
		opts.PageSize = def.PageSize
	}
	if opts.MarginMM < 0 {
		opts.MarginMM = def.MarginMM
	}
	return &Exporter{
		source:   source,
		renderer: renderer,
		opts:     opts,
	}
}

// ExportOptions 单次导出选项
type ExportOptions struct {
	Format   Format
	Progress func(ProgressEvent)
}

// Export 按格式导出当前报告
// 非 success 状态返回 ErrNoReport，不产生任何文件。
func (e *Exporter) Export(opts ExportOptions) (*Artifact, error) {
	progress := newProgressReporter(opts.Progress)

	snap := e.source.Snapshot()
	if !snap.HasReport() {
		return nil, ErrNoReport
	}
	progress.report(10, StageSnapshot)

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case FormatImage:
		var img *image.RGBA
		if img, err = e.rasterize(snap, progress); err == nil {
			data, err = encodePNG(img)
		}
	case FormatDocument:
		var img *image.RGBA
		if img, err = e.rasterize(snap, progress); err == nil {
			data, err = e.buildDocument(snap, img)
		}
	case FormatWorkbook:
		data, err = buildWorkbook(snap)
	default:
		return nil, fmt.Errorf("unsupported export format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", opts.Format, err)
	}
	progress.report(90, StageEncode)

	artifact := &Artifact{
		Filename:    util.ExportFilename(snap.Scorecard.Filename, opts.Format.Extension()),
		ContentType: opts.Format.ContentType(),
		Data:        data,
		Revision:    snap.Revision,
	}
	progress.report(100, StageDone)
	return artifact, nil
}

// ExportImage 导出 PNG
func (e *Exporter) ExportImage() (*Artifact, error) {
	return e.Export(ExportOptions{Format: FormatImage})
}

// ExportDocument 导出单页横向 PDF
func (e *Exporter) ExportDocument() (*Artifact, error) {
	return e.Export(ExportOptions{Format: FormatDocument})
}

// ExportWorkbook 导出 Excel
func (e *Exporter) ExportWorkbook() (*Artifact, error) {
	return e.Export(ExportOptions{Format: FormatWorkbook})
}

// rasterize 图片和 PDF 共用同一快照语义：相同倍数、相同白底
func (e *Exporter) rasterize(snap report.Snapshot, progress *progressReporter) (*image.RGBA, error) {
	if e.renderer == nil {
		return nil, errors.New("report renderer is not available")
	}
	img, err := e.renderer.Render(snap.Scorecard, e.opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize report: %w", err)
	}
	progress.report(60, StageRasterize)
	return img, nil
}
