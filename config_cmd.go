package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reelmerge/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			a.cfg.PrintConfig(cmd.OutOrStdout())
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file with the defaults and any flag overrides",
		Long: `Write a config file containing the built-in defaults, adjusted by any
flags given on the command line. Existing config files are ignored.
PATH defaults to ./reelmerge.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./reelmerge.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &exitError{code: exitPrecondition, err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
			}

			cfg := config.DefaultConfig()
			if err := cfg.MergeFromFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return &exitError{code: exitPrecondition, err: err}
			}
			if err := config.SaveConfigFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
