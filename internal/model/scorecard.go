package model

import (
	"encoding/json"
	"math"
)

// OverallWeightKey 评分服务附带的权重字段，不属于分类
const OverallWeightKey = "overall_weight"

// Score 可能缺失的分值
// Valid 为 false 表示“无分值”（分类）或“未知”（总分）；Valid 为 true 时 Value 一定是有限数
type Score struct {
	Value float64
	Valid bool
}

// Scored 构造有效分值，非有限数视为无分值
func Scored(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	return Score{Value: v, Valid: true}
}

// MarshalJSON 有效分值输出数字，否则输出 null
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON null 为无分值，数字为有效分值
func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Score{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Scored(v)
	return nil
}

// Category 分类得分
type Category struct {
	Name  string `json:"name"`
	Score Score  `json:"score"`
}

// ESG 三项原始分值（非负有限数）
type ESG struct {
	E float64 `json:"E"`
	S float64 `json:"S"`
	G float64 `json:"G"`
}

// Total 三项之和
func (e ESG) Total() float64 {
	return e.E + e.S + e.G
}

// ESGProportions 三项占比（百分数，未取整，和为 100）
type ESGProportions struct {
	E float64 `json:"E"`
	S float64 `json:"S"`
	G float64 `json:"G"`
}

// Sum 三项占比之和
func (p ESGProportions) Sum() float64 {
	return p.E + p.S + p.G
}

// Scorecard 规范化后的评分卡
//
// Present 为 false 时表示“无数据”状态（上传失败或响应不是对象），其余字段均为空值。
// ESG 为 nil 表示服务未返回 ESG；Proportions 为 nil 表示没有可用占比，二者与“零分”区分。
type Scorecard struct {
	Present     bool            `json:"present"`
	Categories  []Category      `json:"categories"`
	Overall     Score           `json:"overall"`
	ESG         *ESG            `json:"esg"`
	Proportions *ESGProportions `json:"esgProportions"`
	Filename    string          `json:"filename"`
}

// EmptyScorecard 无数据状态
func EmptyScorecard() Scorecard {
	return Scorecard{Categories: []Category{}}
}

// HasData 是否有可展示的分数或 ESG 数据
func (s Scorecard) HasData() bool {
	return s.Present && (len(s.Categories) > 0 || s.ESG != nil || s.Overall.Valid)
}

// ScoredCategories 有效分值的分类数
func (s Scorecard) ScoredCategories() int {
	n := 0
	for _, c := range s.Categories {
		if c.Score.Valid {
			n++
		}
	}
	return n
}

// Clone 深拷贝，快照之间不共享切片和指针
func (s Scorecard) Clone() Scorecard {
	out := s
	out.Categories = append([]Category(nil), s.Categories...)
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	if s.ESG != nil {
		esg := *s.ESG
		out.ESG = &esg
	}
	if s.Proportions != nil {
		p := *s.Proportions
		out.Proportions = &p
	}
	return out
}
