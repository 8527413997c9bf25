package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "modernc.org/sqlite"

	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/internal/storage"
)

// SQLITE_CONSTRAINT_UNIQUE
const sqliteConstraintUnique = 2067

func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se) && se.Code() == sqliteConstraintUnique
}

// CreateFriend inserts a manually entered contact row. A second row for
// the same (owner, member) pair trips the unique constraint and reports
// storage.ErrDuplicateFriend.
func (c *conn) CreateFriend(ctx context.Context, friend *models.FriendRecord) error {
	if friend.ID == "" {
		friend.ID = uuid.New().String()
	}
	if friend.CreatedAt == 0 {
		friend.CreatedAt = time.Now().Unix()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO friends (id, owner_account_id, member_id, display_name, has_linked_account, linked_member_id, linked_account_id, linked_account_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		friend.ID,
		friend.OwnerAccountID,
		friend.MemberID,
		friend.DisplayName,
		friend.HasLinkedAccount,
		nullable(friend.LinkedMemberID),
		nullable(friend.LinkedAccountID),
		nullable(friend.LinkedAccountEmail),
		friend.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateFriend
		}
		return fmt.Errorf("failed to create friend: %w", err)
	}
	return nil
}

// ListFriends returns every friend row owned by the account, raw. Dedup is
// a read-time concern layered on top.
func (c *conn) ListFriends(ctx context.Context, ownerAccountID string) ([]models.FriendRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, owner_account_id, member_id, display_name, has_linked_account, linked_member_id, linked_account_id, linked_account_email, created_at
		FROM friends
		WHERE owner_account_id = ?
		ORDER BY created_at, id`,
		ownerAccountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []models.FriendRecord
	for rows.Next() {
		var f models.FriendRecord
		var linkedMember, linkedAccount, linkedEmail sql.NullString
		if err := rows.Scan(
			&f.ID,
			&f.OwnerAccountID,
			&f.MemberID,
			&f.DisplayName,
			&f.HasLinkedAccount,
			&linkedMember,
			&linkedAccount,
			&linkedEmail,
			&f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		f.LinkedMemberID = linkedMember.String
		f.LinkedAccountID = linkedAccount.String
		f.LinkedAccountEmail = linkedEmail.String
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return friends, nil
}

// LinkFriendRows marks every friend row naming memberID as linked to the
// given account. Rows already linked are overwritten with the same values,
// so re-running is harmless.
func (c *conn) LinkFriendRows(ctx context.Context, memberID string, account *models.Account) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE friends
		SET has_linked_account = 1, linked_member_id = ?, linked_account_id = ?, linked_account_email = ?
		WHERE member_id = ?`,
		account.CanonicalMemberID,
		account.ID,
		account.Email,
		memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to link friend rows: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
