package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"equirect/internal/config"
	"equirect/internal/queue"
	"equirect/internal/validate"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued conversion requests",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var fov int
	var outputDir string

	cmd := &cobra.Command{
		Use:   "add INPUT",
		Short: "Enqueue a conversion request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			input, err := config.ExpandPath(args[0])
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
			dest, err = config.ExpandPath(dest)
			if err != nil {
				return err
			}

			// Reject obviously bad requests now rather than at drain time.
			if !validate.InputVideo(input) {
				return fmt.Errorf("%q is not a readable video file", input)
			}
			if !validate.FOV(fov) {
				return fmt.Errorf("field of view %d is out of range (1-360)", fov)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.Add(cmd.Context(), input, dest, fov)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as request %d\n", displayTitle(item.InputPath), item.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&fov, "fov", defaultFOV, "Field of view of the fisheye lenses in degrees")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the converted video (defaults to paths.output_dir)")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversion requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			for _, statusStr := range listStatuses {
				statuses = append(statuses, queue.Status(statusStr))
			}
			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rendered := renderTable(
				[]string{"ID", "Title", "FOV", "Status", "Created", "Error"},
				buildQueueListRows(items),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, converting, completed, failed)")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a conversion request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q", args[0])
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no request with id %d", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed request %d\n", id)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all conversion requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			cleared, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d request(s)\n", cleared)
			return nil
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show request counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rendered := renderTable(
				[]string{"Status", "Count"},
				buildQueueStatusRows(stats),
				[]columnAlignment{alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}
