package cli

import (
	"fmt"
	"time"

	"github.com/me/sweeply/pkg/model"
	"github.com/spf13/cobra"
)

func newAssignmentsCmd() *cobra.Command {
	var date, status string
	var all bool

	cmd := &cobra.Command{
		Use:     "assignments",
		Aliases: []string{"ls"},
		Short:   "List daily assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sess.Authorised() {
				return fmt.Errorf("not logged in, run 'sweeply login' first")
			}

			opts := model.ListOptions{Date: date, Status: status}
			if !all && opts.Date == "" {
				opts.Date = time.Now().Format("2006-01-02")
			}

			assignments, err := api.ListAssignments(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list assignments: %w", err)
			}
			if len(assignments) == 0 {
				fmt.Println("No assignments found.")
				return nil
			}

			fmt.Printf("%-36s  %-30s  %-12s  %-20s  %s\n", "ID", "TASK", "DATE", "STATUS", "TIME")
			for _, a := range assignments {
				fmt.Printf("%-36s  %-30s  %-12s  %-20s  %s\n",
					a.ID, a.TaskName, a.Date, a.Status, formatElapsed(a))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Filter by date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().BoolVar(&all, "all", false, "List all dates, not just today")
	return cmd
}

func formatElapsed(a *model.Assignment) string {
	if d := a.Elapsed(); d > 0 {
		return d.Round(time.Second).String()
	}
	if a.StartTime != nil {
		return "running since " + a.StartTime.Local().Format("15:04")
	}
	return "-"
}
