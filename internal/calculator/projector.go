package calculator

import (
	"esgscope/internal/model"
)

// ESG 分量固定配色：按分量身份而非数值大小分配
const (
	ColorEnvironmental = "#2ca02c"
	ColorSocial        = "#ff7f0e"
	ColorGovernance    = "#1f77b4"
)

// categoryPalette 分类饼图配色，按分类位置循环使用
var categoryPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Slice 图表中的一个扇区
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// ESGSeries ESG 占比序列
// NoData 为 true 时没有占比可画（ESG 缺失或三项之和为 0），Slices 为 nil，页面显示占位。
type ESGSeries struct {
	Slices []Slice `json:"slices"`
	NoData bool    `json:"noData"`
}

// Charts 图表数据
type Charts struct {
	Categories []Slice   `json:"categories"`
	ESG        ESGSeries `json:"esg"`
}

// Project 从评分卡推导图表序列
// 无分值的分类只在表格中显示，不进入图表；图表永远收不到非有限数。
func Project(sc model.Scorecard) Charts {
	charts := Charts{
		Categories: make([]Slice, 0, len(sc.Categories)),
	}

	for i, c := range sc.Categories {
		if !c.Score.Valid {
			continue
		}
		charts.Categories = append(charts.Categories, Slice{
			Label: c.Name,
			Value: c.Score.Value,
			Color: categoryPalette[i%len(categoryPalette)],
		})
	}

	if sc.Proportions == nil {
		charts.ESG = ESGSeries{NoData: true}
		return charts
	}

	p := sc.Proportions
	charts.ESG = ESGSeries{
		Slices: []Slice{
			{Label: "E", Value: p.E, Color: ColorEnvironmental},
			{Label: "S", Value: p.S, Color: ColorSocial},
			{Label: "G", Value: p.G, Color: ColorGovernance},
		},
	}
	return charts
}
