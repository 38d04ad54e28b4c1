package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"esgscope/internal/model"
)

// CoerceScore 把任意 JSON 值转换为分值
// 数字原样通过；数字字符串解析；其它类型（对象、数组、布尔、null、非数字字符串）均为无分值。
// 非有限数（溢出、NaN、Infinity）一律视为无分值。
func CoerceScore(v gjson.Result) model.Score {
	switch v.Type {
	case gjson.Number:
		return parseFinite(v.Raw)
	case gjson.String:
		return parseFinite(v.Str)
	default:
		return model.Score{}
	}
}

// CoerceComponent ESG 分量：缺失、非数字、负数都按 0 处理
func CoerceComponent(v gjson.Result) float64 {
	s := CoerceScore(v)
	if !s.Valid || s.Value < 0 {
		return 0
	}
	return s.Value
}

func parseFinite(text string) model.Score {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Score{}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Score{}
	}
	return model.Scored(f)
}

// field 取对象中最后一次出现的键（与 JSON.parse 的覆盖语义一致）
func field(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
		}
		return true
	})
	return out
}
