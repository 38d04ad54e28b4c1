package calculator

import "esgscope/internal/model"

// Rating 总分评级
type Rating struct {
	Band        string `json:"band"`
	Range       string `json:"range"`
	Description string `json:"description"`
}

type ratingBand struct {
	min    float64
	rating Rating
}

// ratingBands 自高向低排列，取第一个满足 overall >= min 的档位
var ratingBands = []ratingBand{
	{80, Rating{Band: "Excellent", Range: "80-100", Description: "Leading sustainability disclosure and performance across categories."}},
	{70, Rating{Band: "Very Good", Range: "70-79", Description: "Strong practices with a few areas left to mature."}},
	{60, Rating{Band: "Good", Range: "60-69", Description: "Solid baseline with clear room for improvement in weaker categories."}},
	{50, Rating{Band: "Fair", Range: "50-59", Description: "Partial coverage; several categories need attention."}},
}

var (
	ratingLow     = Rating{Band: "Needs Improvement", Range: "0-49", Description: "Significant gaps in sustainability reporting and performance."}
	ratingUnknown = Rating{Band: "Not Rated", Range: "", Description: "No overall score was returned for this document."}
)

// RateOverall 根据实际总分给出评级文字
func RateOverall(overall model.Score) Rating {
	if !overall.Valid {
		return ratingUnknown
	}
	for _, b := range ratingBands {
		if overall.Value >= b.min {
			return b.rating
		}
	}
	return ratingLow
}
