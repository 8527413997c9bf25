package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arvhn/tally/internal/models"
)

// CreateAccount inserts a new account into the database.
func (c *conn) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}
	if account.UpdatedAt == 0 {
		account.UpdatedAt = account.CreatedAt
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, canonical_member_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.CanonicalMemberID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by its ID, alias set included.
func (c *conn) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return c.getAccount(ctx, "id", accountID)
}

// GetAccountByEmail retrieves an account by email address.
func (c *conn) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return c.getAccount(ctx, "email", email)
}

// GetAccountByMemberID retrieves the account owning a canonical member id.
func (c *conn) GetAccountByMemberID(ctx context.Context, canonicalMemberID string) (*models.Account, error) {
	return c.getAccount(ctx, "canonical_member_id", canonicalMemberID)
}

func (c *conn) getAccount(ctx context.Context, column, value string) (*models.Account, error) {
	account := &models.Account{}
	err := c.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, canonical_member_id, created_at, updated_at
		FROM accounts
		WHERE `+column+` = ?`,
		value,
	).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.CanonicalMemberID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by %s: %w", column, err)
	}

	aliases, err := c.accountAliases(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.AliasMemberIDs = aliases
	return account, nil
}

func (c *conn) accountAliases(ctx context.Context, accountID string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT alias_member_id FROM account_aliases WHERE account_id = ? ORDER BY alias_member_id",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get account aliases: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, fmt.Errorf("failed to scan account alias: %w", err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account aliases: %w", err)
	}
	return aliases, nil
}

// AppendAccountAlias adds an alias to the account's denormalized alias set.
// Re-appending an existing alias is a no-op.
func (c *conn) AppendAccountAlias(ctx context.Context, accountID, aliasID string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO account_aliases (account_id, alias_member_id) VALUES (?, ?)",
		accountID, aliasID,
	)
	if err != nil {
		return fmt.Errorf("failed to append account alias: %w", err)
	}
	return nil
}
