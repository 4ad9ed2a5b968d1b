package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"reelmerge/command/video"
	"reelmerge/concatenator"
	"reelmerge/models"
)

// BatchPreview is the plan for one first-level batch.
type BatchPreview struct {
	Batch    string
	Inputs   []string
	Defects  models.DefectSet
	Strategy models.Strategy
	Reason   string
	Output   string

	// Command is the first invocation the batch would run. Fallback is the
	// re-encode that replaces a failed copy; empty for re-encode batches.
	Command  string
	Fallback string
}

// Preview describes what Merge would do without running ffmpeg.
type Preview struct {
	Clips   []*models.ClipDescriptor
	Skipped []string
	Batches []BatchPreview

	// Merges is the number of merge invocations across all levels when
	// every copy succeeds.
	Merges int
}

// Preview probes and classifies the clips and plans the first merge level.
// Later levels depend on chunk outputs that do not exist yet, so only
// their count is reported. Nothing is written to disk.
func (m *Merger) Preview(ctx context.Context, paths []string, output string, target models.TargetProfile) (*Preview, error) {
	output, err := m.checkRequest(paths, output, target)
	if err != nil {
		return nil, err
	}

	clips, skipped, err := m.probeAll(ctx, paths, m.log)
	if err != nil {
		return nil, err
	}
	if err := m.classifier.ClassifyAll(clips, target); err != nil {
		return nil, err
	}

	merges, err := m.chunker.MergeCount(len(clips))
	if err != nil {
		return nil, err
	}
	batches, err := m.chunker.CreateBatches(clips, 0)
	if err != nil {
		return nil, err
	}

	workDir := m.opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	manifest := filepath.Join(workDir, "concat.txt")

	p := &Preview{Clips: clips, Skipped: skipped, Merges: merges}
	for _, batch := range batches {
		out := output
		if len(batches) > 1 {
			out = filepath.Join(workDir, fmt.Sprintf("chunk-%s%s", batch.Label(), filepath.Ext(output)))
		}
		plan := m.selectPlan(batch, out, target, false)

		bp := BatchPreview{
			Batch:    batch.Label(),
			Inputs:   batch.Paths(),
			Defects:  plan.Defects(),
			Strategy: plan.Strategy,
			Reason:   plan.Reason,
			Output:   out,
		}

		reencode, err := m.reencodePreview(batch, out, target)
		if err != nil {
			return nil, err
		}
		if plan.Strategy == models.StrategyStreamCopy {
			if bp.Command, err = m.concat.CopyCommand(manifest, batch.Paths(), concatenator.StreamsOf(batch.Clips[0]), out).DryRun(); err != nil {
				return nil, err
			}
			bp.Fallback = reencode
		} else {
			bp.Command = reencode
		}
		p.Batches = append(p.Batches, bp)
	}
	return p, nil
}

func (m *Merger) reencodePreview(batch *models.Batch, out string, target models.TargetProfile) (string, error) {
	chains, err := m.planner.PlanAll(batch.Clips, target)
	if err != nil {
		return "", err
	}
	inputs := make([]video.Input, len(batch.Clips))
	for i, c := range batch.Clips {
		inputs[i] = video.InputFor(c, chains[i])
	}
	return m.concat.ReencodeCommand(inputs, out, target).DryRun()
}
