package identity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arvhn/tally/internal/models"
)

// ClaimTx is the transactional view of storage the claim protocol runs
// against. Every method operates inside one transaction: either every write
// made through a ClaimTx commits, or none do.
type ClaimTx interface {
	EdgeSource

	GetClaimRequest(ctx context.Context, requestID string) (*models.ClaimRequest, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// GetAccountByMemberID retrieves the account owning a canonical member
	// identifier. Returns nil without error when no account matches.
	GetAccountByMemberID(ctx context.Context, canonicalMemberID string) (*models.Account, error)

	// MarkClaimed transitions the request from PENDING to CLAIMED as a
	// single conditional update. Returns false when the request was not
	// pending, which is how a losing concurrent attempt observes the race.
	MarkClaimed(ctx context.Context, requestID, accountID string, now int64) (bool, error)

	InsertAliasEdge(ctx context.Context, edge *models.AliasEdge) error
	AppendAccountAlias(ctx context.Context, accountID, aliasID string) error

	// LinkFriendRows marks every friend row naming memberID as linked to
	// the given account. Idempotent.
	LinkFriendRows(ctx context.Context, memberID string, account *models.Account) error

	// GrantExpenseVisibility inserts a fan-out row for accountID on every
	// expense memberID participates in or paid. Existing rows are left
	// untouched, so re-running is safe and the original owner's visibility
	// is never removed. Returns the number of rows added.
	GrantExpenseVisibility(ctx context.Context, memberID, accountID string) (int, error)
}

// ClaimStore runs claim transactions and the lazy expiry transition.
type ClaimStore interface {
	// InClaimTx runs fn against a transactional store view. A non-nil error
	// from fn rolls back every write fn made.
	InClaimTx(ctx context.Context, fn func(tx ClaimTx) error) error

	// ExpirePending transitions the request from PENDING to EXPIRED when
	// its expiry has passed. Guarded and idempotent; a no-op otherwise.
	ExpirePending(ctx context.Context, requestID string, now int64) error
}

// ClaimResult is the outcome of a successful claim, the source for the
// versioned response payload.
type ClaimResult struct {
	Request           *models.ClaimRequest
	TargetMemberID    string
	CanonicalMemberID string
	AliasMemberIDs    []string
	Account           *models.Account
	FanOutRowsAdded   int
}

// Claimer executes the claim state machine: PENDING transitions to exactly
// one of CLAIMED, EXPIRED, or REJECTED, and a merge happens at most once
// per request no matter how many attempts race.
//
// Invite-token claims and link-request accepts both run through Claim; the
// two entry points differ only in how the ClaimRequest was created.
type Claimer struct {
	store ClaimStore
	now   func() time.Time
}

// NewClaimer creates a claimer over the given store.
func NewClaimer(store ClaimStore) *Claimer {
	return &Claimer{store: store, now: time.Now}
}

// Claim attempts to claim the request on behalf of claimantAccountID,
// merging the request's target identifier into the claimant's account.
//
// On success the alias edge, the account alias append, the friend-row link,
// and the visibility fan-out commit as one atomic unit. On any failure no
// write survives: a reader never observes a torn merge.
func (c *Claimer) Claim(ctx context.Context, requestID, claimantAccountID string) (*ClaimResult, error) {
	now := c.now().Unix()

	// Lazy expiry: persist PENDING -> EXPIRED before the claim transaction
	// so the terminal state sticks even when the claim below aborts. The
	// claim re-checks the timestamp, so this commit is not load-bearing.
	if err := c.store.ExpirePending(ctx, requestID, now); err != nil {
		return nil, fmt.Errorf("failed to expire pending request: %w", err)
	}

	var result *ClaimResult
	err := c.store.InClaimTx(ctx, func(tx ClaimTx) error {
		req, err := tx.GetClaimRequest(ctx, requestID)
		if err != nil {
			return err
		}

		account, err := tx.GetAccount(ctx, claimantAccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account not found: %s", claimantAccountID)
		}

		target, err := Normalize(req.TargetMemberID)
		if err != nil {
			return err
		}
		canonical, err := Normalize(account.CanonicalMemberID)
		if err != nil {
			return err
		}

		// The requester must not be the target identity: neither the
		// creator of the request nor the owner of the target identifier
		// may claim it.
		if req.CreatorAccountID == account.ID || target == canonical {
			return &Error{
				Code:      CodeSelfClaim,
				Message:   "cannot claim your own identity",
				MemberID:  target,
				RequestID: req.ID,
			}
		}

		switch req.Status {
		case models.ClaimPending:
			if req.Expired(now) {
				return expiredError(req)
			}
		case models.ClaimClaimed:
			return &Error{
				Code:      CodeAlreadyClaimed,
				Message:   "request has already been claimed",
				RequestID: req.ID,
			}
		case models.ClaimExpired:
			return expiredError(req)
		case models.ClaimRejected:
			return fmt.Errorf("request %s was rejected", req.ID)
		}

		// Atomic compare-and-set on the request's own claimed state. Of N
		// concurrent attempts exactly one sees PENDING here; the rest fail
		// fast. A failed check later rolls this back with everything else.
		won, err := tx.MarkClaimed(ctx, req.ID, account.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return &Error{
				Code:      CodeAlreadyClaimed,
				Message:   "request has already been claimed",
				RequestID: req.ID,
			}
		}

		resolver := NewResolver(tx)
		if err := resolver.CheckConflict(ctx, target, canonical); err != nil {
			return err
		}
		if err := resolver.CheckCycle(ctx, target, canonical); err != nil {
			return err
		}

		// The target may have registered an account between request creation
		// and now. Merging a registered canonical would shadow that account,
		// so the guard at request creation is re-checked here.
		if owner, err := tx.GetAccountByMemberID(ctx, target); err != nil {
			return err
		} else if owner != nil {
			return &Error{
				Code:      CodeAliasConflict,
				Message:   "identifier belongs to a registered account",
				MemberID:  target,
				RequestID: req.ID,
			}
		}

		// The edge may already exist when a previous request merged the
		// same pair; the insert is skipped, everything else re-runs.
		existing, hasEdge, err := tx.CanonicalOf(ctx, target)
		if err != nil {
			return err
		}
		if !hasEdge {
			edge := &models.AliasEdge{AliasID: target, CanonicalID: canonical, CreatedAt: now}
			if err := tx.InsertAliasEdge(ctx, edge); err != nil {
				return err
			}
		} else if existing != canonical {
			// CheckConflict above makes this unreachable.
			return &Error{Code: CodeAliasConflict, Message: "identifier already belongs to a different account", MemberID: target}
		}
		if err := tx.AppendAccountAlias(ctx, account.ID, target); err != nil {
			return err
		}

		added, err := reconcile(ctx, tx, target, account)
		if err != nil {
			return err
		}

		aliases, err := tx.AliasesOf(ctx, canonical)
		if err != nil {
			return err
		}
		sort.Strings(aliases)

		req.Status = models.ClaimClaimed
		req.ClaimedBy = account.ID
		req.ClaimedAt = now
		account.AliasMemberIDs = aliases

		result = &ClaimResult{
			Request:           req,
			TargetMemberID:    target,
			CanonicalMemberID: canonical,
			AliasMemberIDs:    aliases,
			Account:           account,
			FanOutRowsAdded:   added,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func expiredError(req *models.ClaimRequest) error {
	code := CodeRequestExpired
	if req.Kind == models.ClaimKindInvite {
		code = CodeTokenExpired
	}
	return &Error{Code: code, Message: "request has expired", RequestID: req.ID}
}
