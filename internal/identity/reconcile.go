package identity

import (
	"context"
	"log/slog"

	"github.com/arvhn/tally/internal/models"
)

// reconcile rewrites downstream references after an alias edge is written,
// inside the same transaction. Each step is independently idempotent, so a
// retried claim re-runs them safely:
//
//   - Friend rows naming the alias are marked linked to the claiming
//     account. Other owners' rows for the same alias are linked too; their
//     lists would otherwise only converge lazily at read time.
//   - The claiming account gains a visibility fan-out row for every expense
//     the alias participated in or paid, so history that predates the
//     account becomes reachable. Existing fan-out rows are never touched:
//     linking must not remove the inviter's visibility.
//
// Group membership and expense split rows are left as written; readers
// resolve them through the alias graph. No bulk rewrite means no risk of a
// partial migration leaving some rows behind.
func reconcile(ctx context.Context, tx ClaimTx, aliasID string, account *models.Account) (fanOutAdded int, err error) {
	if err := tx.LinkFriendRows(ctx, aliasID, account); err != nil {
		return 0, err
	}

	added, err := tx.GrantExpenseVisibility(ctx, aliasID, account.ID)
	if err != nil {
		return 0, err
	}

	slog.Debug("reconciled alias references",
		"alias", aliasID,
		"canonical", account.CanonicalMemberID,
		"fan_out_rows", added,
	)
	return added, nil
}
