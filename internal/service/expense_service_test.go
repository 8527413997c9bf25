package service

import (
	"testing"

	"connectrpc.com/connect"

	"github.com/arvhn/tally/pkg/api"
)

func TestCreateExpense_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register("alice@mail.com", "Alice", "alice")

	create := func(total string, splits []*api.Split, payer string) error {
		_, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, token, &api.CreateExpenseRequest{
			Title:         "Test",
			Total:         total,
			PayerMemberID: payer,
			Splits:        splits,
		})
		return err
	}

	t.Run("splits must sum to the total", func(t *testing.T) {
		err := create("10.00", []*api.Split{
			{MemberID: "alice", Amount: "5.00"},
			{MemberID: "bob", Amount: "4.99"},
		}, "alice")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("payer must be a split member", func(t *testing.T) {
		err := create("10.00", []*api.Split{
			{MemberID: "bob", Amount: "10.00"},
		}, "alice")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("malformed amount", func(t *testing.T) {
		err := create("ten", []*api.Split{{MemberID: "alice", Amount: "10.00"}}, "alice")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, token, &api.CreateExpenseRequest{
			GroupID:       "nope",
			Title:         "Test",
			Total:         "10.00",
			PayerMemberID: "alice",
			Splits:        []*api.Split{{MemberID: "alice", Amount: "10.00"}},
		})
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("valid expense round trips", func(t *testing.T) {
		resp, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, token, &api.CreateExpenseRequest{
			Title:         "Groceries",
			Total:         "24.50",
			PayerMemberID: "alice",
			Splits: []*api.Split{
				{MemberID: "alice", Amount: "12.25"},
				{MemberID: "bob", Amount: "12.25"},
			},
		})
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if resp.Expense.ID == "" || resp.Expense.Total != "24.5" && resp.Expense.Total != "24.50" {
			t.Errorf("expense: %+v", resp.Expense)
		}
	})
}

func TestGetExpense_Visibility(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.register("alice@mail.com", "Alice", "alice")
	_, eveToken := env.register("eve@mail.com", "Eve", "eve")

	resp, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, aliceToken, &api.CreateExpenseRequest{
		Title:         "Private dinner",
		Total:         "20.00",
		PayerMemberID: "alice",
		Splits: []*api.Split{
			{MemberID: "alice", Amount: "10.00"},
			{MemberID: "charlie", Amount: "10.00"},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	// An uninvolved account can neither list nor fetch it.
	visible, err := call[api.ListVisibleExpensesRequest, api.ListVisibleExpensesResponse](env, api.ExpenseListVisibleProcedure, eveToken, &api.ListVisibleExpensesRequest{})
	if err != nil {
		t.Fatalf("ListVisibleExpenses failed: %v", err)
	}
	if len(visible.Expenses) != 0 {
		t.Errorf("expected no visible expenses, got %d", len(visible.Expenses))
	}

	_, err = call[api.GetExpenseRequest, api.GetExpenseResponse](env, api.ExpenseGetProcedure, eveToken, &api.GetExpenseRequest{
		ExpenseID: resp.Expense.ID,
	})
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestCreateExpense_GroupMembership(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register("alice@mail.com", "Alice", "alice")

	group, err := call[api.CreateGroupRequest, api.CreateGroupResponse](env, api.GroupCreateProcedure, token, &api.CreateGroupRequest{
		Name:    "Roommates",
		Members: []string{"alice", "bob"},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// An expense naming someone outside the group pulls them in.
	if _, err := call[api.CreateExpenseRequest, api.CreateExpenseResponse](env, api.ExpenseCreateProcedure, token, &api.CreateExpenseRequest{
		GroupID:       group.Group.ID,
		Title:         "Utilities",
		Total:         "30.00",
		PayerMemberID: "alice",
		Splits: []*api.Split{
			{MemberID: "alice", Amount: "10.00"},
			{MemberID: "bob", Amount: "10.00"},
			{MemberID: "charlie", Amount: "10.00"},
		},
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	got, err := call[api.GetGroupRequest, api.GetGroupResponse](env, api.GroupGetProcedure, token, &api.GetGroupRequest{
		GroupID: group.Group.ID,
	})
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Group.Members) != 3 {
		t.Errorf("expected charlie auto-added, got %v", got.Group.Members)
	}
}
