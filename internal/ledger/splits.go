// Package ledger validates expense amounts at the write boundary. Split
// calculation happens client-side; the server only refuses splits that are
// inconsistent with the recorded total.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arvhn/tally/internal/models"
)

// ValidateSplits checks that an expense's splits are internally consistent:
// at least one split, no negative or zero total, no negative split amounts,
// no duplicate members, and the split amounts sum exactly to the total.
// Amounts are decimals, so "exactly" means exactly.
func ValidateSplits(total decimal.Decimal, splits []models.Split) error {
	if len(splits) == 0 {
		return fmt.Errorf("expense must have at least one split")
	}
	if !total.IsPositive() {
		return fmt.Errorf("expense total must be positive, got %s", total)
	}

	sum := decimal.Zero
	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		if s.MemberID == "" {
			return fmt.Errorf("split member identifier is empty")
		}
		if seen[s.MemberID] {
			return fmt.Errorf("duplicate split for member %q", s.MemberID)
		}
		seen[s.MemberID] = true
		if s.Amount.IsNegative() {
			return fmt.Errorf("split amount for %q is negative: %s", s.MemberID, s.Amount)
		}
		sum = sum.Add(s.Amount)
	}

	if !sum.Equal(total) {
		return fmt.Errorf("splits sum to %s but total is %s", sum, total)
	}
	return nil
}

// ValidatePayer checks that the payer is one of the split members.
func ValidatePayer(payerID string, splits []models.Split) error {
	if payerID == "" {
		return fmt.Errorf("payer member identifier is required")
	}
	for _, s := range splits {
		if s.MemberID == payerID {
			return nil
		}
	}
	return fmt.Errorf("payer %q must be one of the split members", payerID)
}
