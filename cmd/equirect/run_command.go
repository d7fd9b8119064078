package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"equirect/internal/jobstore"
	"equirect/internal/pipeline"
	"equirect/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued conversion requests until the queue drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// Requests left converting by a previous interrupted run go back
			// to pending; their recorded directories let the pipeline resume.
			if reset, err := store.ResetStuckConverting(cmd.Context()); err != nil {
				return err
			} else if reset > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d interrupted request(s)\n", reset)
			}

			runner := pipeline.NewRunner(cfg, logger)
			processed := 0
			failed := 0
			for {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				item, err := store.ClaimNextPending(cmd.Context())
				if err != nil {
					return err
				}
				if item == nil {
					break
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Converting %s (request %d)\n", displayTitle(item.InputPath), item.ID)
				if err := processRequest(cmd, runner, store, item, asJSON); err != nil {
					failed++
					if markErr := store.MarkFailed(cmd.Context(), item.ID, err.Error()); markErr != nil {
						return markErr
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Request %d failed: %v\n", item.ID, err)
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
					continue
				}
				processed++
				if err := store.MarkCompleted(cmd.Context(), item.ID); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Done: %d converted, %d failed\n", processed, failed)
			if failed > 0 {
				return fmt.Errorf("%d request(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status events as JSON lines")
	return cmd
}

// processRequest converts one request, resuming from its recorded directory
// when one survives from an earlier attempt.
func processRequest(cmd *cobra.Command, runner *pipeline.Runner, store *queue.Store, item *queue.Item, asJSON bool) error {
	var job *pipeline.Job
	var err error

	if item.JobDir != "" && jobstore.Check(item.JobDir) == nil {
		job, err = runner.ResumeJob(cmd.Context(), item.JobDir)
	} else {
		job, err = runner.StartNewJob(cmd.Context(), item.InputPath, item.OutputDir, item.FOV)
	}
	if err != nil {
		return err
	}

	if err := store.SetJobDir(context.WithoutCancel(cmd.Context()), item.ID, job.Dir); err != nil {
		return err
	}

	renderer := newRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), asJSON)
	renderer.consume(job.Events())
	return job.Wait()
}
