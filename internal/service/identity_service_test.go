package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/pkg/api"
)

// TestClaimInvite_MergesIdentity walks the whole flow: an owner tracks the
// same person under two identifiers, records an expense against one of
// them, and the person later registers and claims both. Afterwards the
// owner's friend list shows one entry and the claimant sees the expense.
func TestClaimInvite_MergesIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register("alice@mail.com", "Alice", "alice")

	// Two contacts for what is really one person.
	_, err := call[api.AddFriendRequest, api.AddFriendResponse](env, api.FriendAddProcedure, aliceToken, &api.AddFriendRequest{
		MemberID: "Charlie@Mail.com", DisplayName: "Charlie",
	})
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	_, err = call[api.AddFriendRequest, api.AddFriendResponse](env, api.FriendAddProcedure, aliceToken, &api.AddFriendRequest{
		MemberID: "555-0100", DisplayName: "Charlie (phone)",
	})
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}

	// An expense naming the email identifier, recorded before any merge.
	expenseResp, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, aliceToken, &api.CreateExpenseRequest{
		Title:         "Dinner",
		Total:         "30.00",
		PayerMemberID: "alice",
		Splits: []*api.Split{
			{MemberID: "alice", Amount: "15.00"},
			{MemberID: "charlie@mail.com", Amount: "15.00"},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	invite, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
		TargetMemberID: "charlie@mail.com",
	})
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}

	// The person behind both identifiers registers under their own handle.
	bob, bobToken := env.register("bob@mail.com", "Bob", "bob")

	claim, err := call[api.ClaimInviteRequest, api.ClaimResponse](env, api.IdentityClaimInviteProcedure, bobToken, &api.ClaimInviteRequest{
		TokenID: invite.TokenID,
	})
	if err != nil {
		t.Fatalf("ClaimInvite failed: %v", err)
	}
	if claim.ContractVersion != api.ContractVersion {
		t.Errorf("contract version: got %d, want %d", claim.ContractVersion, api.ContractVersion)
	}
	if claim.TargetMemberID != "charlie@mail.com" || claim.CanonicalMemberID != "bob" {
		t.Errorf("claim identity: %+v", claim)
	}
	if claim.LinkedMemberID != claim.CanonicalMemberID {
		t.Errorf("legacy linked_member_id must equal canonical: %+v", claim)
	}
	if claim.LinkedAccountID != bob.ID || claim.LinkedAccountEmail != "bob@mail.com" {
		t.Errorf("claim account: %+v", claim)
	}

	// The phone identifier merges through a link request.
	link, err := call[api.CreateLinkRequestRequest, api.CreateLinkRequestResponse](env, api.IdentityCreateLinkRequestProcedure, aliceToken, &api.CreateLinkRequestRequest{
		TargetMemberID: "555-0100",
	})
	if err != nil {
		t.Fatalf("CreateLinkRequest failed: %v", err)
	}
	accept, err := call[api.AcceptLinkRequestRequest, api.ClaimResponse](env, api.IdentityAcceptLinkRequestProcedure, bobToken, &api.AcceptLinkRequestRequest{
		RequestID: link.RequestID,
	})
	if err != nil {
		t.Fatalf("AcceptLinkRequest failed: %v", err)
	}
	if len(accept.AliasMemberIDs) != 2 {
		t.Errorf("alias set after both merges: %v", accept.AliasMemberIDs)
	}

	t.Run("friend list collapses to one entry", func(t *testing.T) {
		friends, err := call[api.ListFriendsRequest, api.ListFriendsResponse](env, api.FriendListProcedure, aliceToken, &api.ListFriendsRequest{})
		if err != nil {
			t.Fatalf("ListFriends failed: %v", err)
		}
		if len(friends.Friends) != 1 {
			t.Fatalf("expected 1 entry, got %d: %+v", len(friends.Friends), friends.Friends)
		}
		entry := friends.Friends[0]
		if entry.CanonicalMemberID != "bob" || !entry.HasLinkedAccount {
			t.Errorf("entry not linked to canonical: %+v", entry)
		}
		if len(entry.AliasMemberIDs) != 2 {
			t.Errorf("entry alias union: %v", entry.AliasMemberIDs)
		}
		if entry.LinkedAccountEmail != "bob@mail.com" {
			t.Errorf("linked email: %s", entry.LinkedAccountEmail)
		}
	})

	t.Run("claimant sees the pre-merge expense", func(t *testing.T) {
		visible, err := call[api.ListVisibleExpensesRequest, api.ListVisibleExpensesResponse](env, api.ExpenseListVisibleProcedure, bobToken, &api.ListVisibleExpensesRequest{})
		if err != nil {
			t.Fatalf("ListVisibleExpenses failed: %v", err)
		}
		if len(visible.Expenses) != 1 || visible.Expenses[0].ID != expenseResp.Expense.ID {
			t.Fatalf("expected the dinner expense, got %+v", visible.Expenses)
		}

		got, err := call[api.GetExpenseRequest, api.GetExpenseResponse](env, api.ExpenseGetProcedure, bobToken, &api.GetExpenseRequest{
			ExpenseID: expenseResp.Expense.ID,
		})
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Expense.Title != "Dinner" {
			t.Errorf("expense: %+v", got.Expense)
		}
	})

	t.Run("owner still sees the expense unchanged", func(t *testing.T) {
		visible, err := call[api.ListVisibleExpensesRequest, api.ListVisibleExpensesResponse](env, api.ExpenseListVisibleProcedure, aliceToken, &api.ListVisibleExpensesRequest{})
		if err != nil {
			t.Fatalf("ListVisibleExpenses failed: %v", err)
		}
		if len(visible.Expenses) != 1 || visible.Expenses[0].ID != expenseResp.Expense.ID {
			t.Fatalf("owner lost sight of the expense: %+v", visible.Expenses)
		}
		got := visible.Expenses[0]
		if got.Title != "Dinner" || len(got.Splits) != 2 {
			t.Fatalf("expense changed under the owner: %+v", got)
		}
		// The merge rewrites nothing: the split still names the identifier
		// the owner recorded.
		found := false
		for _, split := range got.Splits {
			if split.MemberID == "charlie@mail.com" {
				found = true
			}
		}
		if !found {
			t.Errorf("recorded identifier rewritten: %+v", got.Splits)
		}
	})

	t.Run("account carries the alias set", func(t *testing.T) {
		me, err := call[api.GetCurrentUserRequest, api.GetCurrentUserResponse](env, api.AuthGetCurrentUserProcedure, bobToken, &api.GetCurrentUserRequest{})
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		if len(me.Account.AliasMemberIDs) != 2 {
			t.Errorf("account aliases: %v", me.Account.AliasMemberIDs)
		}
	})

	t.Run("resolution is live for any casing", func(t *testing.T) {
		resolved, err := call[api.ResolveMemberRequest, api.ResolveMemberResponse](env, api.IdentityResolveMemberProcedure, aliceToken, &api.ResolveMemberRequest{
			MemberID: " Charlie@MAIL.com ",
		})
		if err != nil {
			t.Fatalf("ResolveMember failed: %v", err)
		}
		if resolved.CanonicalMemberID != "bob" {
			t.Errorf("resolved: %+v", resolved)
		}

		aliases, err := call[api.ListAliasesRequest, api.ListAliasesResponse](env, api.IdentityListAliasesProcedure, aliceToken, &api.ListAliasesRequest{
			MemberID: "555-0100",
		})
		if err != nil {
			t.Fatalf("ListAliases failed: %v", err)
		}
		if aliases.CanonicalMemberID != "bob" || len(aliases.AliasMemberIDs) != 2 {
			t.Errorf("aliases: %+v", aliases)
		}
	})

	t.Run("claimed request is spent", func(t *testing.T) {
		_, err := call[api.ClaimInviteRequest, api.ClaimResponse](env, api.IdentityClaimInviteProcedure, bobToken, &api.ClaimInviteRequest{
			TokenID: invite.TokenID,
		})
		assertCode(t, err, connect.CodeAlreadyExists)
	})
}

func TestAcceptLinkRequest_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register("alice@mail.com", "Alice", "alice")
	bob, bobToken := env.register("bob@mail.com", "Bob", "bob")
	dora, doraToken := env.register("dora@mail.com", "Dora", "dora")

	link, err := call[api.CreateLinkRequestRequest, api.CreateLinkRequestResponse](env, api.IdentityCreateLinkRequestProcedure, aliceToken, &api.CreateLinkRequestRequest{
		TargetMemberID: "mutual-friend",
	})
	if err != nil {
		t.Fatalf("CreateLinkRequest failed: %v", err)
	}

	type attempt struct {
		account *api.Account
		token   string
	}
	attempts := []attempt{{bob, bobToken}, {dora, doraToken}}
	results := make([]*api.ClaimResponse, len(attempts))
	errs := make([]error, len(attempts))

	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			results[i], errs[i] = call[api.AcceptLinkRequestRequest, api.ClaimResponse](env, api.IdentityAcceptLinkRequestProcedure, token, &api.AcceptLinkRequestRequest{
				RequestID: link.RequestID,
			})
		}(i, a.token)
	}
	wg.Wait()

	var winner *api.ClaimResponse
	for i := range attempts {
		if errs[i] == nil {
			if winner != nil {
				t.Fatal("both concurrent accepts succeeded")
			}
			winner = results[i]
		} else {
			assertCode(t, errs[i], connect.CodeAlreadyExists)
		}
	}
	if winner == nil {
		t.Fatal("no accept succeeded")
	}

	resolved, err := call[api.ResolveMemberRequest, api.ResolveMemberResponse](env, api.IdentityResolveMemberProcedure, aliceToken, &api.ResolveMemberRequest{
		MemberID: "mutual-friend",
	})
	if err != nil {
		t.Fatalf("ResolveMember failed: %v", err)
	}
	if resolved.CanonicalMemberID != winner.CanonicalMemberID {
		t.Errorf("edge belongs to %s but winner was %s", resolved.CanonicalMemberID, winner.CanonicalMemberID)
	}
}

func TestClaim_ErrorPaths(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.register("alice@mail.com", "Alice", "alice")
	_, bobToken := env.register("bob@mail.com", "Bob", "bob")

	t.Run("creator cannot claim their own invite", func(t *testing.T) {
		invite, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "someone",
		})
		if err != nil {
			t.Fatalf("CreateInvite failed: %v", err)
		}
		_, err = call[api.ClaimInviteRequest, api.ClaimResponse](env, api.IdentityClaimInviteProcedure, aliceToken, &api.ClaimInviteRequest{
			TokenID: invite.TokenID,
		})
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("expired invite", func(t *testing.T) {
		req := &models.ClaimRequest{
			Kind:             models.ClaimKindInvite,
			CreatorAccountID: alice.ID,
			TargetMemberID:   "stale-target",
			ExpiresAt:        time.Now().Add(-time.Hour).Unix(),
		}
		if err := env.store.CreateClaimRequest(context.Background(), req); err != nil {
			t.Fatalf("seed request failed: %v", err)
		}

		_, err := call[api.ClaimInviteRequest, api.ClaimResponse](env, api.IdentityClaimInviteProcedure, bobToken, &api.ClaimInviteRequest{
			TokenID: req.ID,
		})
		assertCode(t, err, connect.CodeFailedPrecondition)

		// Lazy expiry persisted the terminal state.
		stored, err := env.store.GetClaimRequest(context.Background(), req.ID)
		if err != nil {
			t.Fatalf("GetClaimRequest failed: %v", err)
		}
		if stored.Status != models.ClaimExpired {
			t.Errorf("expected EXPIRED, got %s", stored.Status)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		invite, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "kinded",
		})
		if err != nil {
			t.Fatalf("CreateInvite failed: %v", err)
		}
		_, err = call[api.AcceptLinkRequestRequest, api.ClaimResponse](env, api.IdentityAcceptLinkRequestProcedure, bobToken, &api.AcceptLinkRequestRequest{
			RequestID: invite.TokenID,
		})
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("target already linked elsewhere", func(t *testing.T) {
		invite, _ := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "claimed-target",
		})
		if _, err := call[api.ClaimInviteRequest, api.ClaimResponse](env, api.IdentityClaimInviteProcedure, bobToken, &api.ClaimInviteRequest{
			TokenID: invite.TokenID,
		}); err != nil {
			t.Fatalf("ClaimInvite failed: %v", err)
		}

		// A new request for the merged identifier is refused at creation.
		_, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "claimed-target",
		})
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("registered handle is not claimable", func(t *testing.T) {
		_, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "bob",
		})
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := call[api.CreateInviteRequest, api.CreateInviteResponse](env, api.IdentityCreateInviteProcedure, aliceToken, &api.CreateInviteRequest{
			TargetMemberID: "   ",
		})
		assertCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestRejectLinkRequest(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register("alice@mail.com", "Alice", "alice")
	_, bobToken := env.register("bob@mail.com", "Bob", "bob")

	link, err := call[api.CreateLinkRequestRequest, api.CreateLinkRequestResponse](env, api.IdentityCreateLinkRequestProcedure, aliceToken, &api.CreateLinkRequestRequest{
		TargetMemberID: "declined-target",
	})
	if err != nil {
		t.Fatalf("CreateLinkRequest failed: %v", err)
	}

	if _, err := call[api.RejectLinkRequestRequest, api.RejectLinkRequestResponse](env, api.IdentityRejectLinkRequestProcedure, bobToken, &api.RejectLinkRequestRequest{
		RequestID: link.RequestID,
	}); err != nil {
		t.Fatalf("RejectLinkRequest failed: %v", err)
	}

	// Rejection is terminal: a second reject and a later accept both fail,
	// and no edge was written.
	_, err = call[api.RejectLinkRequestRequest, api.RejectLinkRequestResponse](env, api.IdentityRejectLinkRequestProcedure, bobToken, &api.RejectLinkRequestRequest{
		RequestID: link.RequestID,
	})
	assertCode(t, err, connect.CodeFailedPrecondition)

	if _, err := call[api.AcceptLinkRequestRequest, api.ClaimResponse](env, api.IdentityAcceptLinkRequestProcedure, bobToken, &api.AcceptLinkRequestRequest{
		RequestID: link.RequestID,
	}); err == nil {
		t.Fatal("expected error accepting a rejected request")
	}

	resolved, err := call[api.ResolveMemberRequest, api.ResolveMemberResponse](env, api.IdentityResolveMemberProcedure, aliceToken, &api.ResolveMemberRequest{
		MemberID: "declined-target",
	})
	if err != nil {
		t.Fatalf("ResolveMember failed: %v", err)
	}
	if resolved.CanonicalMemberID != "declined-target" {
		t.Errorf("identifier merged despite rejection: %+v", resolved)
	}
}
