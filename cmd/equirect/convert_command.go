package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"equirect/internal/pipeline"
)

const defaultFOV = 190

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var fov int
	var outputDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "convert INPUT",
		Short: "Convert a video, streaming progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			dest := outputDir
			if dest == "" {
				dest = cfg.Paths.OutputDir
			}
			if dest == "" {
				dest = "."
			}

			runner := pipeline.NewRunner(cfg, logger)
			job, err := runner.StartNewJob(cmd.Context(), args[0], dest, fov)
			if err != nil {
				return err
			}

			renderer := newRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), asJSON)
			renderer.consume(job.Events())
			if err := job.Wait(); err != nil {
				return fmt.Errorf("conversion failed (resume with `equirect resume %s`): %w", job.Dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", job.OutputPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&fov, "fov", defaultFOV, "Field of view of the fisheye lenses in degrees")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the converted video (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status events as JSON lines")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resume JOB_DIR",
		Short: "Resume an interrupted conversion from its directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(cfg, logger)
			job, err := runner.ResumeJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			renderer := newRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), asJSON)
			renderer.consume(job.Events())
			if err := job.Wait(); err != nil {
				return fmt.Errorf("conversion failed (resume with `equirect resume %s`): %w", job.Dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", job.OutputPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status events as JSON lines")
	return cmd
}
