package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"esgscope/internal/model"
	"esgscope/internal/report"
	"esgscope/internal/store"
)

// ListSubmissions 上传记录
// GET /api/submissions?limit=50
func (h *Handler) ListSubmissions(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"items": []model.SubmissionLog{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.store.ListSubmissionLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询上传记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// submissionJournal 把视图的上传事件写入 submission_logs
type submissionJournal struct {
	store *store.Store
}

// NewSubmissionJournal 基于 SQLite 的上传记录
func NewSubmissionJournal(st *store.Store) report.Journal {
	return &submissionJournal{store: st}
}

func (j *submissionJournal) Dispatched(_ context.Context, doc report.Document) (string, error) {
	sum := sha256.Sum256(doc.Data)
	return j.store.CreateSubmissionLog(doc.Name, int64(len(doc.Data)), hex.EncodeToString(sum[:]))
}

func (j *submissionJournal) Resolved(_ context.Context, id string, snap report.Snapshot) {
	status := model.SubmissionFailed
	if snap.State == report.StateSuccess {
		status = model.SubmissionSuccess
	}
	if err := j.store.CompleteSubmissionLog(id, status, len(snap.Scorecard.Categories), snap.Error); err != nil {
		log.Printf("[api] complete submission log %s: %v", id, err)
	}
}
