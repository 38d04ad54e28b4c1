package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"esgscope/internal/report"
	"esgscope/internal/util"
)

const (
	sheetSummary    = "Summary"
	sheetCategories = "Categories"
)

// buildWorkbook 报告数据表：Summary（总分/评级/ESG）与 Categories（分类得分）
func buildWorkbook(snap report.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetCategories); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	shareFmt := "0.0%"
	shareStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &shareFmt})
	if err != nil {
		return nil, fmt.Errorf("share style: %w", err)
	}
	scoreFmt := "0.00"
	scoreStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &scoreFmt})
	if err != nil {
		return nil, fmt.Errorf("score style: %w", err)
	}

	if err := fillSummarySheet(f, snap, headerStyle, scoreStyle, shareStyle); err != nil {
		return nil, err
	}
	if err := fillCategoriesSheet(f, snap, headerStyle, scoreStyle); err != nil {
		return nil, err
	}

	created := snap.ResolvedAt.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    documentTitle(snap),
		Creator:  "esgscope",
		Created:  created,
		Modified: created,
	}); err != nil {
		return nil, fmt.Errorf("doc props: %w", err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func fillSummarySheet(f *excelize.File, snap report.Snapshot, headerStyle, scoreStyle, shareStyle int) error {
	sc := snap.Scorecard
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Filename", sc.Filename},
		{"Overall", scoreCell(sc.Overall.Valid, sc.Overall.Value)},
		{"Rating", snap.Rating.Band},
		{"Rating Range", snap.Rating.Range},
		{"Rating Description", snap.Rating.Description},
	}
	if err := writeRows(f, sheetSummary, 1, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "B1", headerStyle); err != nil {
		return err
	}
	if sc.Overall.Valid {
		if err := f.SetCellStyle(sheetSummary, "B3", "B3", scoreStyle); err != nil {
			return err
		}
	}

	// ESG 区块
	esgRows := [][]interface{}{{"Component", "Score", "Share"}}
	for _, s := range snap.Charts.ESG.Slices {
		esgRows = append(esgRows, []interface{}{s.Label, nil, s.Value / 100})
	}
	if sc.ESG != nil && len(esgRows) == 4 {
		esgRows[1][1] = sc.ESG.E
		esgRows[2][1] = sc.ESG.S
		esgRows[3][1] = sc.ESG.G
	}
	const esgStart = 8
	if len(esgRows) == 1 {
		esgRows = append(esgRows, []interface{}{"No ESG data available", util.Placeholder, util.Placeholder})
	}
	if err := writeRows(f, sheetSummary, esgStart, esgRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSummary, "A8", "C8", headerStyle); err != nil {
		return err
	}
	if !snap.Charts.ESG.NoData {
		last := esgStart + len(esgRows) - 1
		if err := f.SetCellStyle(sheetSummary, "B9", fmt.Sprintf("B%d", last), scoreStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetSummary, "C9", fmt.Sprintf("C%d", last), shareStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetSummary, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "B", "C", 40)
}

func fillCategoriesSheet(f *excelize.File, snap report.Snapshot, headerStyle, scoreStyle int) error {
	rows := [][]interface{}{{"Category", "Score"}}
	for _, c := range snap.Scorecard.Categories {
		rows = append(rows, []interface{}{c.Name, scoreCell(c.Score.Valid, c.Score.Value)})
	}
	if err := writeRows(f, sheetCategories, 1, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetCategories, "A1", "B1", headerStyle); err != nil {
		return err
	}
	for i, c := range snap.Scorecard.Categories {
		if !c.Score.Valid {
			continue
		}
		cell := fmt.Sprintf("B%d", i+2)
		if err := f.SetCellStyle(sheetCategories, cell, cell, scoreStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetCategories, "A", "A", 36); err != nil {
		return err
	}
	return f.SetColWidth(sheetCategories, "B", "B", 14)
}

// scoreCell 未评分的单元格写占位符
func scoreCell(valid bool, v float64) interface{} {
	if !valid {
		return util.Placeholder
	}
	return v
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, startRow+i)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
