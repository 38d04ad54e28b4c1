package util

import (
	"fmt"
	"regexp"
	"strings"

	"esgscope/internal/model"
)

// Placeholder 无分值/未知分值的显示符号，避免显示成 0.00
const Placeholder = "—"

// DefaultExportBase 文件名为空时的导出文件基名
const DefaultExportBase = "report"

var whitespaceRun = regexp.MustCompile(`\s+`)

// FormatScore 分值保留两位小数
func FormatScore(s model.Score) string {
	if !s.Valid {
		return Placeholder
	}
	return fmt.Sprintf("%.2f", s.Value)
}

// FormatShare 占比保留一位小数（仅展示时取整）
func FormatShare(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

// ExportBaseName 导出文件基名：连续空白（包括首尾）替换为下划线，空白文件名用 report
func ExportBaseName(filename string) string {
	if strings.TrimSpace(filename) == "" {
		return DefaultExportBase
	}
	return whitespaceRun.ReplaceAllString(filename, "_")
}

// ExportFilename 导出文件名 ESG-<基名>.<扩展名>
func ExportFilename(filename, ext string) string {
	return fmt.Sprintf("ESG-%s.%s", ExportBaseName(filename), strings.TrimPrefix(ext, "."))
}
