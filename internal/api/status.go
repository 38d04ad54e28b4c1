package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse 状态响应
type StatusResponse struct {
	State           string     `json:"state"`           // 上传生命周期状态
	SelectedFile    string     `json:"selectedFile"`    // 已选择的文件名
	HasReport       bool       `json:"hasReport"`       // 是否可导出
	Error           string     `json:"error"`           // 最近一次失败信息
	Revision        uint64     `json:"revision"`        // 报告版本号
	ResolvedAt      *time.Time `json:"resolvedAt"`      // 最近一次上传完成时间
	ScoringEndpoint string     `json:"scoringEndpoint"` // 评分服务地址
}

// GetStatus 获取状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	snap := h.view.Snapshot()

	resp := StatusResponse{
		State:           string(snap.State),
		SelectedFile:    snap.SelectedFile,
		HasReport:       snap.HasReport(),
		Error:           snap.Error,
		Revision:        snap.Revision,
		ScoringEndpoint: h.scoringEndpoint,
	}
	if !snap.ResolvedAt.IsZero() {
		t := snap.ResolvedAt
		resp.ResolvedAt = &t
	}
	c.JSON(http.StatusOK, resp)
}
