package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/me/sweeply/internal/assignment"
	"github.com/me/sweeply/internal/timer"
	"github.com/me/sweeply/pkg/model"
	"github.com/spf13/cobra"
)

// mountTimer fetches the assignment, loads any local recovery draft,
// and returns a reconciled machine wired to the server write handler.
// The caller must Close the machine.
func mountTimer(ctx context.Context, id string) (*timer.Machine, *assignment.Handler, *model.Assignment, error) {
	if !sess.Authorised() {
		return nil, nil, nil, fmt.Errorf("not logged in, run 'sweeply login' first")
	}

	a, err := api.GetAssignment(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch assignment: %w", err)
	}

	draft, err := drafts.LoadFor(ctx, id)
	if err != nil {
		logger.Warn("load recovery draft", "error", err)
	}

	handler := assignment.NewHandler(api, drafts, sess.User().ID, nil, logger)
	machine := timer.New(func(ch timer.Change) {
		handler.HandleChange(ctx, id, ch)
	}, logger)
	machine.Reconcile(a.Status, a.StartTime, draft)
	return machine, handler, a, nil
}

func newStartCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "start <assignment-id>",
		Short: "Start the timer on an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			machine, _, a, err := mountTimer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer machine.Close()

			switch machine.State() {
			case timer.StateInProgress:
				// The server may report in_progress without a start time;
				// the reconciled machine always has one.
				if st := machine.StartTime(); st != nil {
					fmt.Printf("Already running since %s.\n", st.Local().Format("15:04"))
				} else {
					fmt.Println("Already running.")
				}
				return nil
			case timer.StateCompleted:
				return fmt.Errorf("assignment is already %s", a.Status)
			}

			if at != "" {
				t, err := time.ParseInLocation("15:04", at, time.Local)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				now := time.Now()
				start := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
				if err := machine.StartAt(start); err != nil {
					return fmt.Errorf("start timer: %w", err)
				}
			} else if err := machine.Start(); err != nil {
				return fmt.Errorf("start timer: %w", err)
			}

			fmt.Printf("Timer started on %q.\n", a.TaskName)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Backdate the start to an earlier time today (HH:MM)")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <assignment-id>",
		Short: "Cancel a running timer, discarding elapsed time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			machine, _, a, err := mountTimer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer machine.Close()

			if err := machine.Cancel(); err != nil {
				return fmt.Errorf("cancel: %w", err)
			}
			fmt.Printf("Timer cancelled on %q.\n", a.TaskName)
			return nil
		},
	}
}

func newCompleteCmd() *cobra.Command {
	var message, status string
	var media []string

	cmd := &cobra.Command{
		Use:   "complete <assignment-id>",
		Short: "Complete an assignment and file its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			final := model.AssignmentStatus(status)
			if !final.IsValid() || !final.IsTerminal() {
				return fmt.Errorf("invalid final status %q", status)
			}

			machine, handler, a, err := mountTimer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer machine.Close()

			if err := machine.AttemptComplete(); err != nil {
				return fmt.Errorf("complete: %w", err)
			}

			if message == "" {
				if message, err = prompt("Report message (optional): "); err != nil {
					return err
				}
			}

			handler.HandleReportSubmit(cmd.Context(), assignment.ReportData{
				Message:    message,
				MediaLinks: media,
				Status:     final,
			})
			if handler.ShowReport() {
				machine.Abandon()
				return fmt.Errorf("report submission failed, assignment left in progress")
			}
			machine.Confirm()

			elapsed := time.Duration(machine.ElapsedMs()) * time.Millisecond
			fmt.Printf("%q %s after %s.\n", a.TaskName, final, elapsed.Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "Report message (prompted if omitted)")
	cmd.Flags().StringVar(&status, "status", string(model.StatusCompleted), "Final status (completed, partially_completed, not_completed)")
	cmd.Flags().StringSliceVar(&media, "media", nil, "Media links to attach to the report")
	return cmd
}
