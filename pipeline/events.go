package pipeline

import hermespost "github.com/bundleworks/hermes-post"

// Stage is a point in one asset's pipeline.
type Stage int

const (
	StageResolved Stage = iota
	StageSkipped
	StageCompiling
	StageComposing
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageResolved:
		return "resolved"
	case StageSkipped:
		return "skipped"
	case StageCompiling:
		return "compiling"
	case StageComposing:
		return "composing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one asset's stage transition. Err is set for StageFailed and,
// with the skip record, for StageSkipped.
type Event struct {
	Asset hermespost.Asset
	Stage Stage
	Err   error
}

// Observer receives stage transitions. Called concurrently from asset
// pipelines; implementations must be safe for concurrent use.
type Observer func(Event)
