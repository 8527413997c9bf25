package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/arvhn/tally/internal/identity"
	"github.com/arvhn/tally/internal/ledger"
	"github.com/arvhn/tally/internal/middleware"
	"github.com/arvhn/tally/internal/models"
	"github.com/arvhn/tally/internal/storage"
	"github.com/arvhn/tally/pkg/api"
)

// ExpenseService records expenses and serves the fan-out-driven visibility
// queries. Split amounts come from the client already computed; the service
// only validates their consistency.
type ExpenseService struct {
	store    storage.Store
	resolver *identity.Resolver
}

// NewExpenseService creates a new expense service.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{
		store:    store,
		resolver: identity.NewResolver(store),
	}
}

// Handlers returns the service's Connect handlers.
func (s *ExpenseService) Handlers(interceptors ...connect.Interceptor) Handlers {
	opts := handlerOptions(interceptors...)
	return Handlers{
		api.ExpenseCreateProcedure:      connect.NewUnaryHandler(api.ExpenseCreateProcedure, s.CreateExpense, opts...),
		api.ExpenseGetProcedure:         connect.NewUnaryHandler(api.ExpenseGetProcedure, s.GetExpense, opts...),
		api.ExpenseListVisibleProcedure: connect.NewUnaryHandler(api.ExpenseListVisibleProcedure, s.ListVisibleExpenses, opts...),
	}
}

// CreateExpense records an expense. Split member identifiers are resolved
// to canonical form before storage; a visibility fan-out row is written for
// the creator and for every participant that already has an account.
// Participants without an account gain visibility later, during claim
// reconciliation.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	total, err := decimal.NewFromString(req.Msg.Total)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid total %q: %w", req.Msg.Total, err))
	}

	splits := make([]models.Split, 0, len(req.Msg.Splits))
	for _, in := range req.Msg.Splits {
		member, err := s.resolver.ResolveCanonical(ctx, in.MemberID)
		if err != nil {
			return nil, connectError(err, connect.CodeInvalidArgument)
		}
		amount, err := decimal.NewFromString(in.Amount)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid amount %q: %w", in.Amount, err))
		}
		splits = append(splits, models.Split{MemberID: member, Amount: amount})
	}

	payer, err := s.resolver.ResolveCanonical(ctx, req.Msg.PayerMemberID)
	if err != nil {
		return nil, connectError(err, connect.CodeInvalidArgument)
	}

	if err := ledger.ValidateSplits(total, splits); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := ledger.ValidatePayer(payer, splits); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if req.Msg.GroupID != "" {
		if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
	}

	visibleTo, err := s.fanOutAccounts(ctx, accountID, splits)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	expense := &models.Expense{
		GroupID:       req.Msg.GroupID,
		Title:         req.Msg.Title,
		Total:         total,
		PayerMemberID: payer,
		Splits:        splits,
		CreatedBy:     accountID,
	}
	if err := s.store.CreateExpense(ctx, expense, visibleTo); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.autoAddParticipantsToGroup(ctx, expense)

	slog.Info("Expense created", "expense_id", expense.ID, "total", expense.Total, "splits", len(expense.Splits))
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// fanOutAccounts collects the account IDs that get a visibility row at
// write time: the creator plus every split member with a registered
// account.
func (s *ExpenseService) fanOutAccounts(ctx context.Context, creatorID string, splits []models.Split) ([]string, error) {
	seen := map[string]bool{creatorID: true}
	visibleTo := []string{creatorID}
	for _, split := range splits {
		account, err := s.store.GetAccountByMemberID(ctx, split.MemberID)
		if err != nil {
			return nil, err
		}
		if account != nil && !seen[account.ID] {
			seen[account.ID] = true
			visibleTo = append(visibleTo, account.ID)
		}
	}
	return visibleTo, nil
}

// autoAddParticipantsToGroup adds any split members missing from the
// expense's group. Best effort: a failure logs and moves on.
func (s *ExpenseService) autoAddParticipantsToGroup(ctx context.Context, expense *models.Expense) {
	if expense.GroupID == "" {
		return
	}
	group, err := s.store.GetGroup(ctx, expense.GroupID)
	if err != nil {
		slog.Warn("autoAddParticipantsToGroup: failed to get group", "group_id", expense.GroupID, "error", err)
		return
	}

	existing := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		existing[m] = true
	}
	var newMembers []string
	for _, split := range expense.Splits {
		if !existing[split.MemberID] {
			existing[split.MemberID] = true
			newMembers = append(newMembers, split.MemberID)
		}
	}
	if len(newMembers) == 0 {
		return
	}

	if err := s.store.AddGroupMembers(ctx, expense.GroupID, newMembers); err != nil {
		slog.Error("autoAddParticipantsToGroup: failed to add members", "group_id", expense.GroupID, "error", err)
		return
	}
	slog.Info("Auto-added participants to group", "group_id", expense.GroupID, "new_members", newMembers)
}

// GetExpense retrieves an expense the authenticated account can see. The
// visibility check resolves through the alias graph, so identifiers merged
// after the expense was written still grant access.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}

	visible, err := s.canSee(ctx, accountID, expense)
	if err != nil {
		return nil, connectError(err, connect.CodeInternal)
	}
	if !visible {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("expense is not visible to this account"))
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

func (s *ExpenseService) canSee(ctx context.Context, accountID string, expense *models.Expense) (bool, error) {
	if expense.CreatedBy == accountID {
		return true, nil
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil || account == nil {
		return false, err
	}

	mine := map[string]bool{account.CanonicalMemberID: true}
	for _, alias := range account.AliasMemberIDs {
		mine[alias] = true
	}

	members := make([]string, 0, len(expense.Splits)+1)
	members = append(members, expense.PayerMemberID)
	for _, split := range expense.Splits {
		members = append(members, split.MemberID)
	}
	for _, member := range members {
		canonical, err := s.resolver.ResolveCanonical(ctx, member)
		if err != nil {
			return false, err
		}
		if mine[canonical] || mine[member] {
			return true, nil
		}
	}
	return false, nil
}

// ListVisibleExpenses returns every expense with a fan-out row for the
// authenticated account, newest first.
func (s *ExpenseService) ListVisibleExpenses(ctx context.Context, req *connect.Request[api.ListVisibleExpensesRequest]) (*connect.Response[api.ListVisibleExpensesResponse], error) {
	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	expenses, err := s.store.ListVisibleExpenses(ctx, accountID)
	if err != nil {
		slog.Error("ListVisibleExpenses failed", "account_id", accountID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	apiExpenses := make([]*api.Expense, len(expenses))
	for i := range expenses {
		apiExpenses[i] = toAPIExpense(&expenses[i])
	}
	return connect.NewResponse(&api.ListVisibleExpensesResponse{Expenses: apiExpenses}), nil
}
