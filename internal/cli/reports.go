package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newReportsCmd() *cobra.Command {
	var assignmentID string

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List completion reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sess.Authorised() {
				return fmt.Errorf("not logged in, run 'sweeply login' first")
			}

			reports, err := api.ListReports(cmd.Context(), assignmentID)
			if err != nil {
				return fmt.Errorf("list reports: %w", err)
			}
			if len(reports) == 0 {
				fmt.Println("No reports found.")
				return nil
			}

			for _, r := range reports {
				dur := r.EndTime.Sub(r.StartTime).Round(time.Second)
				fmt.Printf("%s  %-20s  %s  %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, dur, r.Message)
				if len(r.MediaLinks) > 0 {
					fmt.Printf("    media: %s\n", strings.Join(r.MediaLinks, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&assignmentID, "assignment", "", "Filter by assignment ID")
	return cmd
}
