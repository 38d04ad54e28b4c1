package parser

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"esgscope/internal/model"
)

// ErrMalformedPayload 响应体不是合法 JSON 对象，或不含任何评分卡字段
var ErrMalformedPayload = errors.New("malformed scorecard payload")

// NormalizeScorecard 将评分服务的原始响应规范化为可渲染的评分卡
// 对任意输入都不会失败：不合法的 JSON 或非对象返回无数据状态，其余字段逐个降级。
func NormalizeScorecard(raw []byte) model.Scorecard {
	if !gjson.ValidBytes(raw) {
		return model.EmptyScorecard()
	}
	return normalizeResult(gjson.ParseBytes(raw))
}

// ParseScorecard 评分卡边界解析
// 不是合法 JSON、顶层不是对象或不含任何评分卡字段时返回 ErrMalformedPayload；
// 已出现的字段损坏只做降级，不算错误。
func ParseScorecard(raw []byte) (model.Scorecard, error) {
	if !gjson.ValidBytes(raw) {
		return model.EmptyScorecard(), fmt.Errorf("%w: response is not valid JSON", ErrMalformedPayload)
	}
	root := gjson.ParseBytes(raw)
	sc := normalizeResult(root)
	if !root.IsObject() {
		return sc, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformedPayload, typeName(root))
	}
	if !hasScorecardField(root) {
		return sc, fmt.Errorf("%w: no scorecard fields in response", ErrMalformedPayload)
	}
	return sc, nil
}

// scorecardFields 评分服务响应中可识别的顶层字段
var scorecardFields = []string{"scores", "overall", "overal_score", "esg", "filename"}

func hasScorecardField(root gjson.Result) bool {
	for _, key := range scorecardFields {
		if field(root, key).Exists() {
			return true
		}
	}
	return false
}

func normalizeResult(root gjson.Result) model.Scorecard {
	if !root.IsObject() {
		return model.EmptyScorecard()
	}

	sc := model.Scorecard{
		Present:    true,
		Categories: extractCategories(field(root, "scores")),
		Overall:    extractOverall(root),
	}
	sc.ESG, sc.Proportions = extractESG(field(root, "esg"))

	if fn := field(root, "filename"); fn.Type == gjson.String {
		sc.Filename = fn.Str
	}
	return sc
}

// extractCategories 按响应中的键顺序提取分类，跳过 overall_weight
// 重复键保留首次出现的位置、最后一次出现的值。
func extractCategories(scores gjson.Result) []model.Category {
	categories := []model.Category{}
	if !scores.IsObject() {
		return categories
	}

	index := make(map[string]int)
	scores.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if name == model.OverallWeightKey {
			return true
		}
		score := CoerceScore(v)
		if i, ok := index[name]; ok {
			categories[i].Score = score
			return true
		}
		index[name] = len(categories)
		categories = append(categories, model.Category{Name: name, Score: score})
		return true
	})
	return categories
}

// extractOverall 优先 overall，其次兼容拼写 overal_score
func extractOverall(root gjson.Result) model.Score {
	if s := CoerceScore(field(root, "overall")); s.Valid {
		return s
	}
	return CoerceScore(field(root, "overal_score"))
}

func extractESG(esg gjson.Result) (*model.ESG, *model.ESGProportions) {
	if !esg.IsObject() {
		return nil, nil
	}
	v := &model.ESG{
		E: CoerceComponent(field(esg, "E")),
		S: CoerceComponent(field(esg, "S")),
		G: CoerceComponent(field(esg, "G")),
	}
	return v, Proportions(*v)
}

// Proportions 计算 ESG 占比；三项之和不大于 0 时返回 nil
// 先按最大分量缩放再求和，极大分值也不会溢出。
func Proportions(esg model.ESG) *model.ESGProportions {
	m := math.Max(esg.E, math.Max(esg.S, esg.G))
	if !(m > 0) || math.IsInf(m, 0) {
		return nil
	}
	e, s, g := esg.E/m, esg.S/m, esg.G/m
	total := e + s + g
	return &model.ESGProportions{
		E: e / total * 100,
		S: s / total * 100,
		G: g / total * 100,
	}
}

func typeName(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "array"
	case v.Type == gjson.String:
		return "string"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.True, v.Type == gjson.False:
		return "boolean"
	default:
		return "null"
	}
}
