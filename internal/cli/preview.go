package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/diegoclair/shift-notify-bot/internal/domain/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const atLayout = "2006-01-02T15:04"

// PreviewCmd returns the preview command
func PreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		file     string
		at       string
		noDelete bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the alarms a shift declaration would schedule",
		Long: `Expand a shift declaration read from a YAML file and print every alarm
it would schedule, without storing anything.

Example shift.yaml:
  shiftType: afternoon
  shiftOrder: "1"
  taskType: recycling
  shiftTimeRange: 13-16`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}

			shift, err := loadShiftFile(file)
			if err != nil {
				return err
			}
			if err := service.ValidateShift(shift); err != nil {
				return err
			}

			now := time.Now().In(loc)
			if at != "" {
				now, err = time.ParseInLocation(atLayout, at, loc)
				if err != nil {
					return fmt.Errorf("invalid --at %q, expected %s: %w", at, atLayout, err)
				}
			}

			plan := service.Expand(shift, now, service.ExpandOptions{
				NativeDelete: !noDelete,
				Location:     loc,
			})
			events := service.Filter(plan.Candidates, now, nil)

			printPlan(cmd.OutOrStdout(), shift, plan, events, loc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML shift declaration")
	cmd.Flags().StringVar(&at, "at", "", "submission time as "+atLayout+" (default now)")
	cmd.Flags().BoolVar(&noDelete, "no-delete", false, "expand for a transport that cannot delete messages")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func loadShiftFile(path string) (*entity.Shift, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shift file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var shift entity.Shift
	if err := dec.Decode(&shift); err != nil {
		return nil, fmt.Errorf("failed to parse shift file: %w", err)
	}
	return &shift, nil
}

func printPlan(w io.Writer, shift *entity.Shift, plan *service.Plan, events []*entity.Event, loc *time.Location) {
	fmt.Fprintf(w, "Shift: %s, order %s, task %s\n", shift.ShiftType, shift.ShiftOrder, shift.TaskType)
	fmt.Fprintln(w)

	for _, ev := range events {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			color.New(color.FgCyan).Sprint(ev.FireAt.In(loc).Format("Mon 15:04")),
			kindLabel(ev),
			firstLine(ev.Content),
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d alarms", len(events))
	if dropped := len(plan.Candidates) - len(events); dropped > 0 {
		fmt.Fprintf(w, ", %d already past", dropped)
	}
	fmt.Fprintln(w)

	if plan.SkippedReason != "" {
		fmt.Fprintf(w, "%s pre-shift slot skipped: %s\n", color.New(color.FgYellow).Sprint("!"), plan.SkippedReason)
	}
}

func kindLabel(ev *entity.Event) string {
	if ev.Kind == entity.KindDelete {
		return color.New(color.FgYellow).Sprint("delete")
	}
	if ev.DeleteAt != nil {
		return color.New(color.FgGreen).Sprint("notify*")
	}
	return color.New(color.FgGreen).Sprint("notify ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
