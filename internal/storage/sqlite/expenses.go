package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arvhn/tally/internal/models"
)

// CreateExpense persists an expense with its splits and a visibility
// fan-out row per account in visibleTo, all in one transaction. Amounts are
// stored as decimal strings.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, visibleTo []string) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, title, total, payer_member_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		nullable(expense.GroupID),
		expense.Title,
		expense.Total.String(),
		expense.PayerMemberID,
		expense.CreatedBy,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, split := range expense.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, member_id, amount) VALUES (?, ?, ?)",
			expense.ID, split.MemberID, split.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}

	for _, accountID := range visibleTo {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO expense_visibility (expense_id, account_id) VALUES (?, ?)",
			expense.ID, accountID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense visibility: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, splits included.
func (c *conn) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := c.scanExpense(c.db.QueryRowContext(ctx, `
		SELECT id, group_id, title, total, payer_member_id, created_by, created_at
		FROM expenses
		WHERE id = ?`,
		expenseID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", expenseID)
	}
	if err != nil {
		return nil, err
	}

	splits, err := c.expenseSplits(ctx, []string{expense.ID})
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[expense.ID]
	return expense, nil
}

// ListVisibleExpenses returns every expense the account has a fan-out row
// for, newest first.
func (c *conn) ListVisibleExpenses(ctx context.Context, accountID string) ([]models.Expense, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT e.id, e.group_id, e.title, e.total, e.payer_member_id, e.created_by, e.created_at
		FROM expenses e
		JOIN expense_visibility v ON v.expense_id = e.id
		WHERE v.account_id = ?
		ORDER BY e.created_at DESC, e.id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	var ids []string
	for rows.Next() {
		expense, err := c.scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
		ids = append(ids, expense.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splits, err := c.expenseSplits(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Splits = splits[expenses[i].ID]
	}
	return expenses, nil
}

// GrantExpenseVisibility inserts a fan-out row for accountID on every
// expense memberID participates in or paid. Existing rows are untouched.
func (c *conn) GrantExpenseVisibility(ctx context.Context, memberID, accountID string) (int, error) {
	res, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO expense_visibility (expense_id, account_id)
		SELECT e.id, ?
		FROM expenses e
		WHERE e.payer_member_id = ?
		   OR EXISTS (
			SELECT 1 FROM expense_splits s
			WHERE s.expense_id = e.id AND s.member_id = ?
		   )`,
		accountID, memberID, memberID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to grant expense visibility: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read visibility insert count: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (c *conn) scanExpense(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var groupID sql.NullString
	var total string
	if err := row.Scan(
		&expense.ID,
		&groupID,
		&expense.Title,
		&total,
		&expense.PayerMemberID,
		&expense.CreatedBy,
		&expense.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	expense.GroupID = groupID.String

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expense total %q: %w", total, err)
	}
	expense.Total = amount
	return expense, nil
}

func (c *conn) expenseSplits(ctx context.Context, expenseIDs []string) (map[string][]models.Split, error) {
	splits := make(map[string][]models.Split, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return splits, nil
	}

	query := `
		SELECT expense_id, member_id, amount
		FROM expense_splits
		WHERE expense_id IN (?` + repeatPlaceholder(len(expenseIDs)-1) + `)
		ORDER BY expense_id, member_id`

	args := make([]any, len(expenseIDs))
	for i, id := range expenseIDs {
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID, memberID, raw string
		if err := rows.Scan(&expenseID, &memberID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse split amount %q: %w", raw, err)
		}
		splits[expenseID] = append(splits[expenseID], models.Split{MemberID: memberID, Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense splits: %w", err)
	}
	return splits, nil
}
