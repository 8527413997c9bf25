// Package api defines tally's wire contract: the request and response
// payloads for every RPC, the procedure names, and the JSON codec the
// Connect handlers and clients share.
//
// Payloads evolve additively. Consumers must ignore unknown fields (the
// JSON codec guarantees this) and must keep reading linked_member_id until
// every consumer has migrated to canonical_member_id.
package api

// ContractVersion is the version stamped on claim responses.
const ContractVersion = 2

// Procedure names for every RPC, in Connect's /package.Service/Method form.
const (
	AuthRegisterProcedure       = "/tally.v1.AuthService/Register"
	AuthLoginProcedure          = "/tally.v1.AuthService/Login"
	AuthGetCurrentUserProcedure = "/tally.v1.AuthService/GetCurrentUser"

	IdentityCreateInviteProcedure      = "/tally.v1.IdentityService/CreateInvite"
	IdentityClaimInviteProcedure       = "/tally.v1.IdentityService/ClaimInvite"
	IdentityCreateLinkRequestProcedure = "/tally.v1.IdentityService/CreateLinkRequest"
	IdentityAcceptLinkRequestProcedure = "/tally.v1.IdentityService/AcceptLinkRequest"
	IdentityRejectLinkRequestProcedure = "/tally.v1.IdentityService/RejectLinkRequest"
	IdentityResolveMemberProcedure     = "/tally.v1.IdentityService/ResolveMember"
	IdentityListAliasesProcedure       = "/tally.v1.IdentityService/ListAliases"

	FriendAddProcedure  = "/tally.v1.FriendService/AddFriend"
	FriendListProcedure = "/tally.v1.FriendService/ListFriends"

	GroupCreateProcedure     = "/tally.v1.GroupService/CreateGroup"
	GroupGetProcedure        = "/tally.v1.GroupService/GetGroup"
	GroupAddMembersProcedure = "/tally.v1.GroupService/AddGroupMembers"
	GroupListProcedure       = "/tally.v1.GroupService/ListGroups"

	ExpenseCreateProcedure      = "/tally.v1.ExpenseService/CreateExpense"
	ExpenseGetProcedure         = "/tally.v1.ExpenseService/GetExpense"
	ExpenseListVisibleProcedure = "/tally.v1.ExpenseService/ListVisibleExpenses"
)

// Account is the wire form of a registered account.
type Account struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	DisplayName       string   `json:"display_name"`
	CanonicalMemberID string   `json:"canonical_member_id"`
	AliasMemberIDs    []string `json:"alias_member_ids"`
	CreatedAt         int64    `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	// MemberHandle becomes the account's canonical member identifier.
	MemberHandle string `json:"member_handle"`
	Password     string `json:"password"`
}

type RegisterResponse struct {
	Account *Account `json:"account"`
	Token   string   `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Account *Account `json:"account"`
	Token   string   `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	Account *Account `json:"account"`
}

type CreateInviteRequest struct {
	// TargetMemberID is the manually entered identifier the invited person
	// will claim.
	TargetMemberID string `json:"target_member_id"`
	// TTLSeconds bounds the invite's validity; the server applies a default
	// when zero.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

type CreateInviteResponse struct {
	TokenID   string `json:"token_id"`
	ExpiresAt int64  `json:"expires_at"`
}

type ClaimInviteRequest struct {
	TokenID string `json:"token_id"`
}

type CreateLinkRequestRequest struct {
	TargetMemberID string `json:"target_member_id"`
	TTLSeconds     int64  `json:"ttl_seconds,omitempty"`
}

type CreateLinkRequestResponse struct {
	RequestID string `json:"request_id"`
	ExpiresAt int64  `json:"expires_at"`
}

type AcceptLinkRequestRequest struct {
	RequestID string `json:"request_id"`
}

type RejectLinkRequestRequest struct {
	RequestID string `json:"request_id"`
}

type RejectLinkRequestResponse struct{}

// ClaimResponse is the versioned merge payload both claim entry points
// return. linked_member_id always equals canonical_member_id; it survives
// for readers that predate the canonical field.
type ClaimResponse struct {
	ContractVersion    int      `json:"contract_version"`
	TargetMemberID     string   `json:"target_member_id"`
	CanonicalMemberID  string   `json:"canonical_member_id"`
	AliasMemberIDs     []string `json:"alias_member_ids"`
	LinkedMemberID     string   `json:"linked_member_id"`
	LinkedAccountID    string   `json:"linked_account_id"`
	LinkedAccountEmail string   `json:"linked_account_email"`
}

type ResolveMemberRequest struct {
	MemberID string `json:"member_id"`
}

type ResolveMemberResponse struct {
	MemberID          string `json:"member_id"`
	CanonicalMemberID string `json:"canonical_member_id"`
}

type ListAliasesRequest struct {
	MemberID string `json:"member_id"`
}

type ListAliasesResponse struct {
	CanonicalMemberID string   `json:"canonical_member_id"`
	AliasMemberIDs    []string `json:"alias_member_ids"`
}

// Friend is one deduplicated friend-list entry.
type Friend struct {
	ID                 string   `json:"id"`
	MemberID           string   `json:"member_id"`
	DisplayName        string   `json:"display_name"`
	HasLinkedAccount   bool     `json:"has_linked_account"`
	CanonicalMemberID  string   `json:"canonical_member_id"`
	AliasMemberIDs     []string `json:"alias_member_ids"`
	LinkedMemberID     string   `json:"linked_member_id,omitempty"`
	LinkedAccountID    string   `json:"linked_account_id,omitempty"`
	LinkedAccountEmail string   `json:"linked_account_email,omitempty"`
}

type AddFriendRequest struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
}

type AddFriendResponse struct {
	Friend *Friend `json:"friend"`
}

type ListFriendsRequest struct{}

type ListFriendsResponse struct {
	Friends []*Friend `json:"friends"`
}

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type AddGroupMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type AddGroupMembersResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// Split is one member's share of an expense. Amounts travel as decimal
// strings to avoid float drift.
type Split struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

type Expense struct {
	ID            string   `json:"id"`
	GroupID       string   `json:"group_id,omitempty"`
	Title         string   `json:"title"`
	Total         string   `json:"total"`
	PayerMemberID string   `json:"payer_member_id"`
	Splits        []*Split `json:"splits"`
	CreatedAt     int64    `json:"created_at"`
}

type CreateExpenseRequest struct {
	GroupID       string   `json:"group_id,omitempty"`
	Title         string   `json:"title"`
	Total         string   `json:"total"`
	PayerMemberID string   `json:"payer_member_id"`
	Splits        []*Split `json:"splits"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListVisibleExpensesRequest struct{}

type ListVisibleExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}
