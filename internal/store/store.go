package store

import (
	"context"

	"github.com/me/sweeply/pkg/model"
)

// Store defines the persistence layer for sweeply entities.
type Store interface {
	// Users. Password hashes and activation codes live only here; the
	// model.User wire type never carries them.
	CreateUser(ctx context.Context, u *model.User, passwordHash, activationCode string) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, string, error)
	ActivateUser(ctx context.Context, code, passwordHash string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Locations and rooms
	CreateLocation(ctx context.Context, loc *model.Location) error
	ListLocations(ctx context.Context) ([]*model.Location, error)
	DeleteLocation(ctx context.Context, id string) error
	CreateRoom(ctx context.Context, room *model.Room) error
	ListRooms(ctx context.Context, locationID string) ([]*model.Room, error)

	// Tasks
	CreateTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context) ([]*model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Assignments
	CreateAssignment(ctx context.Context, a *model.Assignment) error
	GetAssignment(ctx context.Context, id string) (*model.Assignment, error)
	ListAssignments(ctx context.Context, opts model.ListOptions) ([]*model.Assignment, int, error)
	UpdateAssignment(ctx context.Context, a *model.Assignment) error

	// Reports
	CreateReport(ctx context.Context, r *model.Report) error
	ListReports(ctx context.Context, assignmentID string) ([]*model.Report, error)

	// Auth tokens
	SaveToken(ctx context.Context, t *model.AuthToken) error
	GetToken(ctx context.Context, token string) (*model.AuthToken, error)
	RevokeToken(ctx context.Context, token string) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
