package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"esgscope/internal/calculator"
	"esgscope/internal/model"
	"esgscope/internal/parser"
)

// State 上传生命周期状态
type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "fileSelected"
	StateSubmitting   State = "submitting"
	StateSuccess      State = "success"
	StateFailed       State = "failed"
)

var (
	// ErrNoFile 提交时未选择文件（本地拒绝，不发请求）
	ErrNoFile = errors.New("please select a file first")
	// ErrSubmitInFlight 已有上传进行中
	ErrSubmitInFlight = errors.New("an upload is already in progress")
)

// Submitter 评分服务上传接口
type Submitter interface {
	Submit(ctx context.Context, filename string, doc io.Reader) ([]byte, error)
}

// Journal 上传记录（可选），只记录文件元信息和结果，不记录评分
type Journal interface {
	Dispatched(ctx context.Context, doc Document) (string, error)
	Resolved(ctx context.Context, id string, snap Snapshot)
}

// Document 已选择的待上传文档
type Document struct {
	Name string
	Data []byte
}

// Snapshot 视图状态快照，与视图不共享可变数据
type Snapshot struct {
	State        State             `json:"state"`
	SelectedFile string            `json:"selectedFile"`
	Scorecard    model.Scorecard   `json:"scorecard"`
	Charts       calculator.Charts `json:"charts"`
	Rating       calculator.Rating `json:"rating"`
	Error        string            `json:"error"`
	Revision     uint64            `json:"revision"`
	ResolvedAt   time.Time         `json:"resolvedAt"`
}

// HasReport 是否处于可导出的成功状态
func (s Snapshot) HasReport() bool {
	return s.State == StateSuccess
}

// View 报告视图：持有当前评分卡和上传状态机
//
// 评分卡只会被整体替换，从不局部修改。
type View struct {
	mu        sync.Mutex
	submitter Submitter
	journal   Journal
	now       func() time.Time

	state      State
	file       *Document
	scorecard  model.Scorecard
	errMsg     string
	revision   uint64
	resolvedAt time.Time
}

// NewView 创建报告视图
func NewView(submitter Submitter) *View {
	return &View{
		submitter: submitter,
		now:       time.Now,
		state:     StateIdle,
		scorecard: model.EmptyScorecard(),
	}
}

// SetJournal 设置上传记录
func (v *View) SetJournal(j Journal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.journal = j
}

// SelectFile 选择待上传文档
// 不清除当前显示的报告和错误信息；上传进行中不允许更换文件。
func (v *View) SelectFile(doc Document) error {
	if strings.TrimSpace(doc.Name) == "" && len(doc.Data) == 0 {
		return ErrNoFile
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	v.file = &Document{Name: doc.Name, Data: append([]byte(nil), doc.Data...)}
	v.state = StateFileSelected
	return nil
}

// Submit 上传已选择的文档
//
// 未选择文件时返回 ErrNoFile，状态不变。请求发出后立即清除文件引用，
// 再次提交需要重新选择文件。传输失败和响应异常不作为错误返回，而是体现在快照的 failed 状态中。
func (v *View) Submit(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	if v.state == StateSubmitting {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, ErrSubmitInFlight
	}
	if v.file == nil {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, ErrNoFile
	}
	doc := v.file
	v.file = nil
	v.state = StateSubmitting
	journal := v.journal
	v.mu.Unlock()

	var entryID string
	if journal != nil {
		id, jerr := journal.Dispatched(ctx, *doc)
		if jerr != nil {
			log.Printf("[report] record submission %s: %v", doc.Name, jerr)
		}
		entryID = id
	}

	body, err := v.submitter.Submit(ctx, doc.Name, bytes.NewReader(doc.Data))
	sc := model.EmptyScorecard()
	if err == nil {
		sc, err = parser.ParseScorecard(body)
	}

	snap := v.resolve(sc, err)
	if journal != nil && entryID != "" {
		journal.Resolved(ctx, entryID, snap)
	}
	return snap, nil
}

// resolve 整体替换评分卡并进入终态
func (v *View) resolve(sc model.Scorecard, err error) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.revision++
	v.resolvedAt = v.now()
	if err != nil {
		v.state = StateFailed
		v.scorecard = model.EmptyScorecard()
		v.errMsg = err.Error()
		return v.snapshotLocked()
	}
	v.state = StateSuccess
	v.scorecard = sc
	v.errMsg = ""
	return v.snapshotLocked()
}

// Snapshot 当前状态快照
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	sc := v.scorecard.Clone()
	snap := Snapshot{
		State:      v.state,
		Scorecard:  sc,
		Charts:     calculator.Project(sc),
		Rating:     calculator.RateOverall(sc.Overall),
		Error:      v.errMsg,
		Revision:   v.revision,
		ResolvedAt: v.resolvedAt,
	}
	if v.file != nil {
		snap.SelectedFile = v.file.Name
	}
	return snap
}
