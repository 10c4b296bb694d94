package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/me/sweeply/pkg/model"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users, locations, rooms, and tasks",
	}
	cmd.AddCommand(
		newAdminUsersCmd(),
		newAdminLocationsCmd(),
		newAdminRoomsCmd(),
		newAdminTasksCmd(),
		newAdminAssignCmd(),
	)
	return cmd
}

func requireAdmin() error {
	if !sess.Authorised() {
		return fmt.Errorf("not logged in, run 'sweeply login' first")
	}
	if !sess.User().IsAdmin() {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func newAdminUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			users, err := api.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			fmt.Printf("%-36s  %-30s  %-10s  %s\n", "ID", "EMAIL", "ROLE", "ACTIVATED")
			for _, u := range users {
				fmt.Printf("%-36s  %-30s  %-10s  %v\n", u.ID, u.Email, u.Role, u.Activated)
			}
			return nil
		},
	}

	var email, first, last, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Provision an account and print its activation code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			created, err := api.CreateUser(cmd.Context(), &model.User{
				Email:     email,
				FirstName: first,
				LastName:  last,
				Role:      model.UserRole(role),
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Printf("Created %s (%s)\n", created.User.Email, created.User.ID)
			fmt.Printf("Activation code: %s\n", created.ActivationCode)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "Account email")
	create.Flags().StringVar(&first, "first-name", "", "First name")
	create.Flags().StringVar(&last, "last-name", "", "Last name")
	create.Flags().StringVar(&role, "role", string(model.RoleCleaner), "Role (cleaner or admin)")
	create.MarkFlagRequired("email")

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			if err := api.DeleteUser(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func newAdminLocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Manage locations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			locs, err := api.ListLocations(cmd.Context())
			if err != nil {
				return fmt.Errorf("list locations: %w", err)
			}
			for _, l := range locs {
				fmt.Printf("%-36s  %-30s  %s\n", l.ID, l.Name, l.Address)
			}
			return nil
		},
	}

	var name, address string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			loc, err := api.CreateLocation(cmd.Context(), &model.Location{Name: name, Address: address})
			if err != nil {
				return fmt.Errorf("create location: %w", err)
			}
			fmt.Printf("Created location %s (%s)\n", loc.Name, loc.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Location name")
	add.Flags().StringVar(&address, "address", "", "Street address")
	add.MarkFlagRequired("name")

	cmd.AddCommand(list, add)
	return cmd
}

func newAdminRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
	}

	var locationID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			rooms, err := api.ListRooms(cmd.Context(), locationID)
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}
			for _, r := range rooms {
				fmt.Printf("%-36s  %-25s  floor %-4s  location %s\n", r.ID, r.Name, r.Floor, r.LocationID)
			}
			return nil
		},
	}
	list.Flags().StringVar(&locationID, "location", "", "Filter by location ID")

	var name, loc, floor string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a room to a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			room, err := api.CreateRoom(cmd.Context(), &model.Room{Name: name, LocationID: loc, Floor: floor})
			if err != nil {
				return fmt.Errorf("create room: %w", err)
			}
			fmt.Printf("Created room %s (%s)\n", room.Name, room.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Room name")
	add.Flags().StringVar(&loc, "location", "", "Location ID")
	add.Flags().StringVar(&floor, "floor", "", "Floor label")
	add.MarkFlagRequired("name")
	add.MarkFlagRequired("location")

	cmd.AddCommand(list, add)
	return cmd
}

func newAdminTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage recurring task templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			tasks, err := api.ListTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			for _, tk := range tasks {
				fmt.Printf("%-36s  %-30s  %-8s  %s\n", tk.ID, tk.Name, tk.Period, formatWeekdays(tk.Weekdays))
			}
			return nil
		},
	}

	var name, desc, roomID, period string
	var weekdays []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			days, err := parseWeekdays(weekdays)
			if err != nil {
				return err
			}
			task, err := api.CreateTask(cmd.Context(), &model.Task{
				Name:        name,
				Description: desc,
				RoomID:      roomID,
				Period:      model.RecurrencePeriod(period),
				Weekdays:    days,
			})
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			fmt.Printf("Created task %s (%s)\n", task.Name, task.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Task name")
	add.Flags().StringVar(&desc, "description", "", "Task description")
	add.Flags().StringVar(&roomID, "room", "", "Room ID")
	add.Flags().StringVar(&period, "period", "daily", "Recurrence (daily, weekly, monthly)")
	add.Flags().StringSliceVar(&weekdays, "weekdays", nil, "Weekdays for weekly tasks (e.g. mon,thu)")
	add.MarkFlagRequired("name")
	add.MarkFlagRequired("room")

	del := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			if err := api.DeleteTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete task: %w", err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func newAdminAssignCmd() *cobra.Command {
	var taskID, taskName, userID, roomID, date string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Schedule a task for a user on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(); err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			a, err := api.CreateAssignment(cmd.Context(), &model.Assignment{
				TaskID:   taskID,
				TaskName: taskName,
				UserID:   userID,
				RoomID:   roomID,
				Date:     date,
			})
			if err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}
			fmt.Printf("Assigned %q to %s on %s (%s)\n", a.TaskName, a.UserID, a.Date, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "Task ID")
	cmd.Flags().StringVar(&taskName, "task-name", "", "Task display name")
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&roomID, "room", "", "Room ID")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("user")
	return cmd
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		days = append(days, d)
	}
	return days, nil
}

func formatWeekdays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}
