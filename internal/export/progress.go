package export

// Stage identifies the phase an export run is in. Stages advance strictly
// forward; the segment loop stays in StageCompositing while the percentage
// climbs.
type Stage string

const (
	StagePreparing   Stage = "preparing"
	StageLoading     Stage = "loading"
	StageNormalizing Stage = "normalizing"
	StageCompositing Stage = "compositing"
	StageFinalizing  Stage = "finalizing"
	StageComplete    Stage = "complete"
)

// Progress is one progress report. Segment counts segments finished so far
// out of Total; both are zero outside the per-segment stages.
type Progress struct {
	Stage   Stage
	Percent int
	Segment int
	Total   int
}

// ProgressFunc receives progress reports during an export. It is called from
// the exporting goroutine and must not block.
type ProgressFunc func(Progress)

func (e *Engine) emit(stage Stage, percent, segment, total int) {
	if e.progress == nil {
		return
	}
	e.progress(Progress{Stage: stage, Percent: percent, Segment: segment, Total: total})
}
