package model

import "time"

// 上传记录状态
const (
	SubmissionPending = "pending"
	SubmissionSuccess = "success"
	SubmissionFailed  = "failed"
)

// SubmissionLog 上传记录（只记录文件元信息和结果，不保存评分）
type SubmissionLog struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	FileSize      int64      `json:"fileSize"`
	FileHash      string     `json:"fileHash"`
	Status        string     `json:"status"`
	CategoryCount int        `json:"categoryCount"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
