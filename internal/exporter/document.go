package exporter

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/go-pdf/fpdf"

	"esgscope/internal/report"
)

const (
	reportImageName = "esg-report"
	titleLineMM     = 10
	titleGapMM      = 4
)

// encodePNG 将位图编码为 PNG
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// buildDocument 单页横向 PDF：标题行在上，报告位图按页宽缩放，超高时再按页高收缩
func (e *Exporter) buildDocument(snap report.Snapshot, img *image.RGBA) ([]byte, error) {
	raw, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	margin := e.opts.MarginMM
	pdf := fpdf.New("L", "mm", e.opts.PageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(snap.ResolvedAt)
	pdf.SetModificationDate(snap.ResolvedAt)
	pdf.SetTitle(documentTitle(snap), true)
	pdf.SetCreator("esgscope", true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(0, titleLineMM, tr(documentTitle(snap)), "", 0, "L", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(reportImageName, opts, bytes.NewReader(raw))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("register report image: %w", err)
	}

	pageW, pageH := pdf.GetPageSize()
	top := margin + titleLineMM + titleGapMM
	x, y, w, h := fitImage(img.Bounds().Dx(), img.Bounds().Dy(), pageW, pageH-top+margin, margin)
	y += top - margin
	pdf.ImageOptions(reportImageName, x, y, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}

// fitImage 计算图片在页面内的位置和尺寸（单位与页面一致）
func fitImage(pxW, pxH int, pageW, pageH, margin float64) (x, y, w, h float64) {
	availW := pageW - 2*margin
	availH := pageH - 2*margin
	if pxW <= 0 || pxH <= 0 || availW <= 0 || availH <= 0 {
		return margin, margin, 0, 0
	}
	w = availW
	h = w * float64(pxH) / float64(pxW)
	if h > availH {
		h = availH
		w = h * float64(pxW) / float64(pxH)
	}
	x = margin + (availW-w)/2
	y = margin
	return x, y, w, h
}

func documentTitle(snap report.Snapshot) string {
	name := snap.Scorecard.Filename
	if name == "" {
		name = snap.SelectedFile
	}
	if name == "" {
		return "ESG Report"
	}
	return "ESG Report: " + name
}
