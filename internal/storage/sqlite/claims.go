package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arvhn/tally/internal/models"
)

// CreateClaimRequest inserts a new claim request in PENDING state.
func (c *conn) CreateClaimRequest(ctx context.Context, req *models.ClaimRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.Status == "" {
		req.Status = models.ClaimPending
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO claim_requests (id, kind, creator_account_id, target_member_id, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		string(req.Kind),
		req.CreatorAccountID,
		req.TargetMemberID,
		string(req.Status),
		req.ExpiresAt,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim request: %w", err)
	}
	return nil
}

// GetClaimRequest retrieves a claim request by ID.
func (c *conn) GetClaimRequest(ctx context.Context, requestID string) (*models.ClaimRequest, error) {
	req := &models.ClaimRequest{}
	var claimedBy sql.NullString
	var claimedAt sql.NullInt64

	err := c.db.QueryRowContext(ctx, `
		SELECT id, kind, creator_account_id, target_member_id, status, expires_at, claimed_by, claimed_at, created_at
		FROM claim_requests
		WHERE id = ?`,
		requestID,
	).Scan(
		&req.ID,
		(*string)(&req.Kind),
		&req.CreatorAccountID,
		&req.TargetMemberID,
		(*string)(&req.Status),
		&req.ExpiresAt,
		&claimedBy,
		&claimedAt,
		&req.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("claim request not found: %s", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim request: %w", err)
	}

	req.ClaimedBy = claimedBy.String
	req.ClaimedAt = claimedAt.Int64
	return req, nil
}

// MarkClaimed transitions the request from PENDING to CLAIMED as one
// conditional update against the request's own claimed state. Exactly one
// of any set of concurrent attempts sees a row change; the rest get false.
func (c *conn) MarkClaimed(ctx context.Context, requestID, accountID string, now int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE claim_requests
		SET status = ?, claimed_by = ?, claimed_at = ?
		WHERE id = ? AND status = ? AND claimed_by IS NULL`,
		string(models.ClaimClaimed), accountID, now,
		requestID, string(models.ClaimPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark claim request claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim update count: %w", err)
	}
	return n == 1, nil
}

// ExpirePending transitions the request from PENDING to EXPIRED once its
// expiry has passed. Guarded by status and timestamp, so it is idempotent
// and safe to race with a claim attempt.
func (c *conn) ExpirePending(ctx context.Context, requestID string, now int64) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE claim_requests
		SET status = ?
		WHERE id = ? AND status = ? AND expires_at <= ?`,
		string(models.ClaimExpired),
		requestID, string(models.ClaimPending), now,
	)
	if err != nil {
		return fmt.Errorf("failed to expire claim request: %w", err)
	}
	return nil
}

// RejectPending transitions the request from PENDING to REJECTED. Returns
// false when the request was not pending.
func (c *conn) RejectPending(ctx context.Context, requestID string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE claim_requests
		SET status = ?
		WHERE id = ? AND status = ?`,
		string(models.ClaimRejected),
		requestID, string(models.ClaimPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to reject claim request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reject update count: %w", err)
	}
	return n == 1, nil
}
