package models

import (
	"fmt"
	"strings"
)

// Strategy is the execution strategy for one batch.
type Strategy string

const (
	StrategyStreamCopy Strategy = "stream-copy"            // concat demuxer, -c copy
	StrategyReencode   Strategy = "normalize-and-reencode" // concat filter with per-clip normalization
)

// Batch is an ordered slice of the request's clips merged in one pass.
//
// Batches are created by splitting the input list into fixed-size groups.
// Order inside a batch and across batch IDs is the input order.
type Batch struct {
	BatchID uint              `json:"batch_id"`
	Level   int               `json:"level"` // 0 for source clips, +1 for each merge-of-merges pass
	Clips   []*ClipDescriptor `json:"clips"`
}

// NewBatch creates a validated Batch.
func NewBatch(id uint, level int, clips []*ClipDescriptor) (*Batch, error) {
	b := &Batch{BatchID: id, Level: level, Clips: clips}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}
	return b, nil
}

// Validate checks that the batch holds at least one clip with a path.
func (b *Batch) Validate() error {
	if len(b.Clips) == 0 {
		return fmt.Errorf("batch %d has no clips", b.BatchID)
	}
	for i, c := range b.Clips {
		if c == nil || strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("batch %d clip %d has no path", b.BatchID, i)
		}
	}
	return nil
}

// Paths returns the clip paths in batch order.
func (b *Batch) Paths() []string {
	paths := make([]string, len(b.Clips))
	for i, c := range b.Clips {
		paths[i] = c.Path
	}
	return paths
}

// Label identifies the batch in logs, e.g. "L0-B003".
func (b *Batch) Label() string {
	return fmt.Sprintf("L%d-B%03d", b.Level, b.BatchID)
}

// MergePlan is one execution strategy for a batch of clips.
type MergePlan struct {
	Clips      []*ClipDescriptor `json:"clips"`
	Strategy   Strategy          `json:"strategy"`
	BatchSize  int               `json:"batch_size"`
	OutputPath string            `json:"output_path"`
	Target     *TargetProfile    `json:"target,omitempty"` // required for re-encode
	Reason     string            `json:"reason"`
}

// Defects returns the union of the defect tags of every clip in the plan.
func (p *MergePlan) Defects() DefectSet {
	var s DefectSet
	for _, c := range p.Clips {
		s = s.Union(c.Defects)
	}
	return s
}

// Validate enforces the plan invariants.
//
// Returns an error if:
//   - the plan has no clips or no output path
//   - the strategy is stream-copy but some clip carries a defect tag
//   - the strategy is re-encode but no target profile is attached
func (p *MergePlan) Validate() error {
	if len(p.Clips) == 0 {
		return fmt.Errorf("merge plan has no clips")
	}
	if strings.TrimSpace(p.OutputPath) == "" {
		return fmt.Errorf("merge plan has no output path")
	}

	switch p.Strategy {
	case StrategyStreamCopy:
		if d := p.Defects(); !d.IsEmpty() {
			return fmt.Errorf("stream-copy plan contains defective clips: %s", d)
		}
	case StrategyReencode:
		if p.Target == nil {
			return fmt.Errorf("re-encode plan requires a target profile")
		}
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	return nil
}
