package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reelmerge/ffprobe"
	"reelmerge/internal/logging"
	"reelmerge/internal/ui"
	"reelmerge/orchestrator"
)

func newMergeCmd() *cobra.Command {
	var (
		output string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "merge -o OUTPUT CLIP...",
		Short: "Merge clips, in order, into one output file",
		Example: `  # Join three clips with the default 720x1280 canvas
  reelmerge merge -o reel.mp4 intro.mp4 main.mov outro.mp4

  # Landscape output, keep going when a clip cannot be read
  reelmerge merge -o out.mp4 --width 1920 --height 1080 --skip-unprobeable clips/*.mp4

  # Show the plan and ffmpeg commands without running them
  reelmerge merge -o reel.mp4 --dry-run clips/*.mp4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.merge(cmd, args, output, dryRun)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Probe and plan only; print the ffmpeg commands")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) merge(cmd *cobra.Command, clips []string, output string, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	target, err := a.cfg.ToTarget()
	if err != nil {
		return &exitError{code: exitPrecondition, err: err}
	}

	prober := ffprobe.NewProber(a.runner, a.cfg.ProberOptions())
	merger := orchestrator.New(a.cfg.MergeOptions(), prober, a.runner, a.log)

	if dryRun {
		a.cfg.PrintConfig(out)
		preview, err := merger.Preview(ctx, clips, output, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.PreviewReport(preview))
		fmt.Fprintln(out, "✓ Configuration is valid. No merge was performed.")
		return nil
	}

	status := ui.NewStatus(out, logging.IsTerminal(os.Stdout))
	merger.SetObserver(status.Observer())

	res, err := merger.Merge(ctx, clips, output, target)
	if res != nil {
		fmt.Fprintln(out, ui.ResultReport(res))
	}
	if err != nil {
		return err
	}

	for _, path := range res.Skipped {
		status.Warn("skipped unreadable clip %s", path)
	}
	status.Success("Merged %d clips into %s", res.Inputs-len(res.Skipped), res.OutputPath)
	return nil
}
