package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// JobsCmd returns the jobs command
func JobsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"ls"},
		Short:   "List pending alarms in firing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}

			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			jobs, err := svc.Shift.PendingJobs(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(w, "No pending alarms.")
				return nil
			}

			for _, job := range jobs {
				label := firstLine(job.Content)
				if job.TargetRef != "" {
					label = "retract " + job.TargetRef
				}
				fmt.Fprintf(w, "  %s  %s  %s  %s\n",
					color.New(color.FgCyan).Sprint(job.FireAt.In(loc).Format("2006-01-02 15:04")),
					kindLabel(job),
					job.ID[:12],
					label,
				)
			}
			fmt.Fprintf(w, "\n%d pending\n", len(jobs))
			return nil
		},
	}
}

// ClearCmd returns the clear command
func ClearCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Cancel every scheduled alarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}

			svc, closeFn, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeFn()

			cancelled, err := svc.Shift.ClearAll(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s cleared %d pending alarms\n", color.New(color.FgGreen).Sprint("✓"), cancelled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing every schedule")

	return cmd
}
