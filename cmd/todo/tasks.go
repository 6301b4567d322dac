package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"focustodo/internal/models"
	"focustodo/internal/state"
	"focustodo/internal/stats"
)

func addCmd(flags *globalFlags) *cobra.Command {
	var (
		priority string
		due      string
		estimate int
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "add [description]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch state.TaskPatch
			if priority != "" {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if due != "" {
				d, err := time.ParseInLocation(time.DateOnly, due, time.Local)
				if err != nil {
					return fmt.Errorf("due must be YYYY-MM-DD: %w", err)
				}
				ms := d.UnixMilli()
				patch.DueDate = &ms
			}
			if estimate > 0 {
				patch.EstimatedMinutes = &estimate
			}
			if len(tags) > 0 {
				patch.Tags = tags
			}

			rt, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			task, err := rt.app.AddTask(strings.Join(args, " "), patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable)")
	return cmd
}

func listCmd(flags *globalFlags) *cobra.Command {
	var (
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := rt.app.Store.State()
			tasks := s.Active
			if all {
				tasks = s.AllTasks()
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func doneCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Complete a task and all of its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			task, err := rt.app.Task(args[0])
			if err != nil {
				return err
			}
			if task.Completed {
				return fmt.Errorf("task %s is already completed", task.ID)
			}
			rt.app.Store.Dispatch(state.CompleteTask{ID: task.ID})
			fmt.Fprintf(cmd.OutOrStdout(), "completed %s\n", task.Description)
			return nil
		},
	}
}

func statsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := rt.app.Store.State()
			summary := stats.Compute(s.Active, s.Completed, rt.app.Now())
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "tasks:       %d (%d active, %d completed)\n", summary.Total, summary.ActiveCount, summary.CompletedCount)
			fmt.Fprintf(w, "completion:  %.1f%%\n", summary.CompletionRate)
			fmt.Fprintf(w, "overdue:     %d\n", summary.OverdueCount)
			fmt.Fprintf(w, "estimated:   %d min (avg %.1f)\n", summary.Time.TotalEstimated, summary.Time.AverageEstimated)
			fmt.Fprintf(w, "actual:      %d min (avg %.1f)\n", summary.Time.TotalActual, summary.Time.AverageActual)
			for _, p := range summary.Priorities {
				fmt.Fprintf(w, "%-12s %d (%.0f%%)\n", string(p.Priority)+":", p.Count, p.Percentage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s", mark, t.ID, t.Description)
		if t.Priority != "" {
			line += "  !" + string(t.Priority)
		}
		if t.DueDate != nil {
			line += "  due " + time.UnixMilli(*t.DueDate).Format(time.DateOnly)
		}
		if n := len(t.Subtasks); n > 0 {
			done := 0
			for _, st := range t.Subtasks {
				if st.Completed {
					done++
				}
			}
			line += fmt.Sprintf("  (%d/%d)", done, n)
		}
		fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
