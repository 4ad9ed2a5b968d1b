package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelmerge/classifier"
	"reelmerge/ffprobe"
	"reelmerge/internal/ui"
	"reelmerge/models"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe CLIP...",
		Short: "Show stream details and defects for each clip",
		Long: `Probe every clip with ffprobe and classify it against the configured
target. Defects explain why a merge would need to re-encode.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.probe(cmd, args)
		},
	}
}

func (a *app) probe(cmd *cobra.Command, paths []string) error {
	ctx := cmd.Context()

	target, err := a.cfg.ToTarget()
	if err != nil {
		return &exitError{code: exitPrecondition, err: err}
	}

	prober := ffprobe.NewProber(a.runner, a.cfg.ProberOptions())
	cls := classifier.New(a.cfg.Thresholds)

	var (
		clips   []*models.ClipDescriptor
		defects models.DefectSet
	)
	failures := make(map[string]error)
	for _, path := range paths {
		clip, err := prober.Probe(ctx, path)
		if err != nil {
			if ctx.Err() != nil || ffprobe.IsKind(err, ffprobe.ToolUnavailable) {
				return err
			}
			failures[path] = err
			continue
		}
		if clip.Defects, err = cls.Classify(clip, target); err != nil {
			return err
		}
		defects = defects.Union(clip.Defects)
		clips = append(clips, clip)
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.ProbeReport(clips, failures))

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d clips could not be probed", len(failures), len(paths))
	}
	if !defects.IsEmpty() {
		fmt.Fprintf(cmd.OutOrStdout(), "↻ Merge will re-encode: defects %s\n", defects)
	} else if ok, reason := cls.CopyCompatible(clips); !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "↻ Merge will re-encode: %s\n", reason)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Clips can be joined with a stream copy")
	}
	return nil
}
