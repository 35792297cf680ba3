// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/models"
)

// Sentinel errors shared by every store implementation. Callers match them
// with errors.Is; the HTTP layer maps them onto 404 and 409 responses.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a uniqueness violation, such as an email or
	// join code already in use, or a membership that already exists.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines the persistence operations for users, groups, and the debt
// ledger. This abstraction keeps the engines and services independent of the
// backing database: the sqlite package is the durable implementation, the
// memory package backs unit tests.
//
// RecordExpense and RecordPayment run the apply callback inside the same
// transaction that inserts the record, handing it an edge store view scoped
// to that transaction. When apply returns an error the whole write rolls
// back, so a rejected payment leaves neither a payment row nor a balance
// change behind.
type Store interface {
	// CreateUser persists a new user, filling ID and timestamps when unset.
	// Returns ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Returns ErrNotFound when absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound when
	// absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID. Users that do not
	// exist are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateGroup persists a new group and enrolls the creator as its first
	// member. Returns ErrDuplicate when the join code is already in use.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its member list. Returns ErrNotFound
	// when absent.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// GetGroupByJoinCode retrieves a group by its join code, members
	// included. Returns ErrNotFound when absent.
	GetGroupByJoinCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsByMember retrieves every group the user belongs to.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMember enrolls a user in a group. Returns ErrDuplicate when
	// already a member.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// RecordExpense persists an expense together with its split allocations
	// (expense.Splits) and runs apply against the transaction's edge store.
	RecordExpense(ctx context.Context, expense *models.Expense, apply func(ledger.EdgeStore) error) error

	// RecordPayment persists a payment and runs apply against the
	// transaction's edge store.
	RecordPayment(ctx context.Context, payment *models.Payment, apply func(ledger.EdgeStore) error) error

	// ListGroupEdges retrieves every balance edge of a group.
	ListGroupEdges(ctx context.Context, groupID string) ([]ledger.Edge, error)

	// ListUserEdges retrieves every balance edge, across all groups, where
	// the user is lender or borrower.
	ListUserEdges(ctx context.Context, userID string) ([]ledger.Edge, error)

	// ListGroupExpenses retrieves a group's expenses, newest first, splits
	// included.
	ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListGroupPayments retrieves a group's payments, newest first.
	ListGroupPayments(ctx context.Context, groupID string) ([]*models.Payment, error)

	// ListUserActivity retrieves the newest expense and payment entries
	// across the user's groups, merged and capped at limit.
	ListUserActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error)

	// Close releases any resources held by the store.
	Close() error
}
