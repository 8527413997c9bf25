// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/models"
)

// ErrDuplicateFriend reports that the owner already has a contact row for
// the identifier.
var ErrDuplicateFriend = errors.New("contact already exists")

// Store defines the interface for tally's storage operations. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// The embedded identity interfaces carry the alias graph reads and the
// transactional claim protocol; the alias graph and account alias sets are
// mutated exclusively through identity.ClaimStore's transaction.
type Store interface {
	identity.EdgeSource
	identity.ClaimStore

	// CreateAccount persists a new account. The ID and timestamps are
	// populated by the store if unset.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by ID, including its alias set.
	// Returns nil without error when the account does not exist.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// GetAccountByEmail retrieves an account by email address.
	// Returns nil without error when no account matches.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetAccountByMemberID retrieves the account owning a canonical member
	// identifier. Returns nil without error when no account matches.
	GetAccountByMemberID(ctx context.Context, canonicalMemberID string) (*models.Account, error)

	// CreateClaimRequest persists a new claim request (invite token or
	// link request) in PENDING state.
	CreateClaimRequest(ctx context.Context, req *models.ClaimRequest) error

	// GetClaimRequest retrieves a claim request by ID.
	GetClaimRequest(ctx context.Context, requestID string) (*models.ClaimRequest, error)

	// RejectPending transitions a request from PENDING to REJECTED.
	// Returns false when the request was not pending.
	RejectPending(ctx context.Context, requestID string) (bool, error)

	// CreateFriend persists a manually entered contact row. Returns
	// ErrDuplicateFriend when the owner already has a row for the
	// identifier.
	CreateFriend(ctx context.Context, friend *models.FriendRecord) error

	// ListFriends returns every friend row owned by the account, duplicates
	// included; the dedup view collapses them.
	ListFriends(ctx context.Context, ownerAccountID string) ([]models.FriendRecord, error)

	// CreateGroup persists a new group with its member list.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID, members included.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMembers adds member identifiers to a group, skipping ones
	// already present.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// ListGroups retrieves all groups.
	ListGroups(ctx context.Context) ([]models.Group, error)

	// CreateExpense persists an expense with its splits and writes a
	// visibility fan-out row for each account in visibleTo, atomically.
	CreateExpense(ctx context.Context, expense *models.Expense, visibleTo []string) error

	// GetExpense retrieves an expense by ID, splits included.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListVisibleExpenses returns every expense with a fan-out row for the
	// account, newest first.
	ListVisibleExpenses(ctx context.Context, accountID string) ([]models.Expense, error)

	// Close releases any resources held by the store.
	Close() error
}
