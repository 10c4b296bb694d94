package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/sweeply/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// formatTime renders a time for storage; nil pointers become NULL.
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimePtr parses a nullable stored timestamp.
func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User, passwordHash, activationCode string) error {
	s.logger.Debug("sql", "op", "insert", "table", "users", "id", u.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, role, activated, password_hash, activation_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, boolToInt(u.Activated),
		passwordHash, activationCode, u.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

const userColumns = `id, email, first_name, last_name, role, activated, created_at, last_login_at`

func (s *SQLiteStore) scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var activated int
	var createdAt string
	var lastLogin sql.NullString

	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &activated, &createdAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.Activated = activated != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	u.LastLoginAt = parseTimePtr(lastLogin)
	return &u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.logger.Debug("sql", "op", "select", "table", "users", "id", id)
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, string, error) {
	s.logger.Debug("sql", "op", "select_by_email", "table", "users")

	var hash string
	if err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE email = ?`, email,
	).Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", err
	}

	u, err := s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, hash, err
}

// ActivateUser redeems an activation code: marks the account activated,
// sets its password hash, and clears the code so it is single-use.
func (s *SQLiteStore) ActivateUser(ctx context.Context, code, passwordHash string) (*model.User, error) {
	s.logger.Debug("sql", "op", "activate", "table", "users")
	if code == "" {
		return nil, nil
	}

	var id string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE activation_code = ?`, code,
	).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET activated = 1, password_hash = ?, activation_code = '' WHERE id = ?`,
		passwordHash, id,
	); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.logger.Debug("sql", "op", "list", "table", "users")

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "users", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// --- Locations and rooms ---

func (s *SQLiteStore) CreateLocation(ctx context.Context, loc *model.Location) error {
	s.logger.Debug("sql", "op", "insert", "table", "locations", "id", loc.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (id, name, address, created_at) VALUES (?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Address, loc.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListLocations(ctx context.Context) ([]*model.Location, error) {
	s.logger.Debug("sql", "op", "list", "table", "locations")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []*model.Location
	for rows.Next() {
		var loc model.Location
		var createdAt string
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &createdAt); err != nil {
			return nil, err
		}
		loc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		locs = append(locs, &loc)
	}
	return locs, rows.Err()
}

func (s *SQLiteStore) DeleteLocation(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "locations", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, room *model.Room) error {
	s.logger.Debug("sql", "op", "insert", "table", "rooms", "id", room.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, location_id, name, floor, created_at) VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.LocationID, room.Name, room.Floor, room.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListRooms(ctx context.Context, locationID string) ([]*model.Room, error) {
	s.logger.Debug("sql", "op", "list", "table", "rooms", "location", locationID)

	query := `SELECT id, location_id, name, floor, created_at FROM rooms`
	args := []any{}
	if locationID != "" {
		query += ` WHERE location_id = ?`
		args = append(args, locationID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		var r model.Room
		var createdAt string
		if err := rows.Scan(&r.ID, &r.LocationID, &r.Name, &r.Floor, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	s.logger.Debug("sql", "op", "insert", "table", "tasks", "id", task.ID)

	weekdaysJSON, err := json.Marshal(task.Weekdays)
	if err != nil {
		return fmt.Errorf("marshal weekdays: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, name, description, room_id, period, weekdays, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Name, task.Description, task.RoomID, task.Period,
		string(weekdaysJSON), task.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*model.Task, error) {
	s.logger.Debug("sql", "op", "list", "table", "tasks")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, room_id, period, weekdays, created_at FROM tasks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		var t model.Task
		var weekdaysJSON, createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.RoomID, &t.Period, &weekdaysJSON, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weekdaysJSON), &t.Weekdays); err != nil {
			return nil, fmt.Errorf("unmarshal weekdays: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "tasks", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// --- Assignments ---

const assignmentColumns = `id, task_id, task_name, user_id, location_id, room_id, date, status, start_time, end_time, created_at, updated_at`

func (s *SQLiteStore) scanAssignment(row interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var startTime, endTime sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.TaskID, &a.TaskName, &a.UserID, &a.LocationID, &a.RoomID,
		&a.Date, &a.Status, &startTime, &endTime, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.StartTime = parseTimePtr(startTime)
	a.EndTime = parseTimePtr(endTime)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &a, nil
}

func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	s.logger.Debug("sql", "op", "insert", "table", "assignments", "id", a.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.TaskName, a.UserID, a.LocationID, a.RoomID, a.Date, a.Status,
		formatTime(a.StartTime), formatTime(a.EndTime),
		a.CreatedAt.UTC().Format(time.RFC3339Nano), a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	s.logger.Debug("sql", "op", "select", "table", "assignments", "id", id)
	return s.scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, opts model.ListOptions) ([]*model.Assignment, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "assignments", "date", opts.Date, "user", opts.UserID)
	opts.Clamp()

	where := ` WHERE 1=1`
	args := []any{}
	if opts.Date != "" {
		where += ` AND date = ?`
		args = append(args, opts.Date)
	}
	if opts.UserID != "" {
		where += ` AND user_id = ?`
		args = append(args, opts.UserID)
	}
	if opts.Status != "" {
		where += ` AND status = ?`
		args = append(args, opts.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments`+where+` ORDER BY date, created_at LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a, err := s.scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		assignments = append(assignments, a)
	}
	return assignments, total, rows.Err()
}

func (s *SQLiteStore) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	s.logger.Debug("sql", "op", "update", "table", "assignments", "id", a.ID, "status", a.Status)

	_, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET status = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`,
		a.Status, formatTime(a.StartTime), formatTime(a.EndTime),
		a.UpdatedAt.UTC().Format(time.RFC3339Nano), a.ID,
	)
	return err
}

// --- Reports ---

func (s *SQLiteStore) CreateReport(ctx context.Context, r *model.Report) error {
	s.logger.Debug("sql", "op", "insert", "table", "reports", "id", r.ID)

	mediaJSON, err := json.Marshal(r.MediaLinks)
	if err != nil {
		return fmt.Errorf("marshal media links: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, daily_assignment_id, user_id, message, media_links, start_time, end_time, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DailyAssignmentID, r.UserID, r.Message, string(mediaJSON),
		r.StartTime.UTC().Format(time.RFC3339Nano), r.EndTime.UTC().Format(time.RFC3339Nano),
		r.Status, r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListReports(ctx context.Context, assignmentID string) ([]*model.Report, error) {
	s.logger.Debug("sql", "op", "list", "table", "reports", "assignment", assignmentID)

	query := `SELECT id, daily_assignment_id, user_id, message, media_links, start_time, end_time, status, created_at FROM reports`
	args := []any{}
	if assignmentID != "" {
		query += ` WHERE daily_assignment_id = ?`
		args = append(args, assignmentID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var r model.Report
		var mediaJSON, startTime, endTime, createdAt string
		if err := rows.Scan(&r.ID, &r.DailyAssignmentID, &r.UserID, &r.Message, &mediaJSON,
			&startTime, &endTime, &r.Status, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(mediaJSON), &r.MediaLinks); err != nil {
			return nil, fmt.Errorf("unmarshal media links: %w", err)
		}
		r.StartTime, _ = time.Parse(time.RFC3339Nano, startTime)
		r.EndTime, _ = time.Parse(time.RFC3339Nano, endTime)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// --- Auth tokens ---

func (s *SQLiteStore) SaveToken(ctx context.Context, t *model.AuthToken) error {
	s.logger.Debug("sql", "op", "insert", "table", "auth_tokens", "kind", t.Kind, "user", t.UserID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, kind, expires_at, revoked, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Token, t.UserID, t.Kind,
		t.ExpiresAt.UTC().Format(time.RFC3339Nano), boolToInt(t.Revoked),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetToken(ctx context.Context, token string) (*model.AuthToken, error) {
	s.logger.Debug("sql", "op", "select", "table", "auth_tokens")

	var t model.AuthToken
	var revoked int
	var expiresAt, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, kind, expires_at, revoked, created_at FROM auth_tokens WHERE token = ?`, token,
	).Scan(&t.Token, &t.UserID, &t.Kind, &expiresAt, &revoked, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Revoked = revoked != 0
	t.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &t, nil
}

func (s *SQLiteStore) RevokeToken(ctx context.Context, token string) error {
	s.logger.Debug("sql", "op", "revoke", "table", "auth_tokens")
	_, err := s.db.ExecContext(ctx, `UPDATE auth_tokens SET revoked = 1 WHERE token = ?`, token)
	return err
}

func (s *SQLiteStore) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "cleanup", "table", "auth_tokens")

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < ?`,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
