package service

import (
	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/pkg/api"
)

func toAPIAccount(account *models.Account) *api.Account {
	return &api.Account{
		ID:                account.ID,
		Email:             account.Email,
		DisplayName:       account.DisplayName,
		CanonicalMemberID: account.CanonicalMemberID,
		AliasMemberIDs:    account.AliasMemberIDs,
		CreatedAt:         account.CreatedAt,
	}
}

func toAPIFriend(entry identity.FriendEntry) *api.Friend {
	rep := entry.Representative
	return &api.Friend{
		ID:                 rep.ID,
		MemberID:           rep.MemberID,
		DisplayName:        rep.DisplayName,
		HasLinkedAccount:   rep.HasLinkedAccount,
		CanonicalMemberID:  entry.CanonicalMemberID,
		AliasMemberIDs:     entry.AliasMemberIDs,
		LinkedMemberID:     rep.LinkedMemberID,
		LinkedAccountID:    rep.LinkedAccountID,
		LinkedAccountEmail: rep.LinkedAccountEmail,
	}
}

func toAPIGroup(group *models.Group) *api.Group {
	return &api.Group{
		ID:        group.ID,
		Name:      group.Name,
		Members:   group.Members,
		CreatedAt: group.CreatedAt,
	}
}

func toAPIExpense(expense *models.Expense) *api.Expense {
	splits := make([]*api.Split, len(expense.Splits))
	for i, s := range expense.Splits {
		splits[i] = &api.Split{MemberID: s.MemberID, Amount: s.Amount.String()}
	}
	return &api.Expense{
		ID:            expense.ID,
		GroupID:       expense.GroupID,
		Title:         expense.Title,
		Total:         expense.Total.String(),
		PayerMemberID: expense.PayerMemberID,
		Splits:        splits,
		CreatedAt:     expense.CreatedAt,
	}
}

func toAPIClaim(result *identity.ClaimResult) *api.ClaimResponse {
	return &api.ClaimResponse{
		ContractVersion:    api.ContractVersion,
		TargetMemberID:     result.TargetMemberID,
		CanonicalMemberID:  result.CanonicalMemberID,
		AliasMemberIDs:     result.AliasMemberIDs,
		LinkedMemberID:     result.CanonicalMemberID, // legacy alias of canonical
		LinkedAccountID:    result.Account.ID,
		LinkedAccountEmail: result.Account.Email,
	}
}
