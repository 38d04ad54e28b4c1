package exporter

// ProgressEvent 导出进度事件（用于 UI 展示）
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// 导出阶段
const (
	StageSnapshot  = "snapshot"
	StageRasterize = "rasterize"
	StageEncode    = "encode"
	StageDone      = "done"
)

// progressReporter 过滤重复百分比，保证进度单调不减
type progressReporter struct {
	fn   func(ProgressEvent)
	last int
}

func newProgressReporter(fn func(ProgressEvent)) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (p *progressReporter) report(percent int, stage string) {
	if p == nil || p.fn == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= p.last {
		return
	}
	p.last = percent
	p.fn(ProgressEvent{
		Percent: percent,
		Stage:   stage,
	})
}
