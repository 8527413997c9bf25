package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// alias_edges is the authoritative alias graph: one row per merged
// identifier, pointing directly at a canonical member id. account_aliases
// is the denormalized per-account copy, written only in the same
// transaction as the edge. Merges never delete rows from either.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    canonical_member_id TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS account_aliases (
    account_id TEXT NOT NULL,
    alias_member_id TEXT NOT NULL,
    PRIMARY KEY (account_id, alias_member_id),
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS alias_edges (
    alias_id TEXT PRIMARY KEY,
    canonical_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    CHECK (alias_id <> canonical_id)
);

CREATE TABLE IF NOT EXISTS claim_requests (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    creator_account_id TEXT NOT NULL,
    target_member_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    expires_at INTEGER NOT NULL,
    claimed_by TEXT,
    claimed_at INTEGER,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (creator_account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS friends (
    id TEXT PRIMARY KEY,
    owner_account_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    has_linked_account INTEGER NOT NULL DEFAULT 0,
    linked_member_id TEXT,
    linked_account_id TEXT,
    linked_account_email TEXT,
    created_at INTEGER NOT NULL,
    UNIQUE (owner_account_id, member_id),
    FOREIGN KEY (owner_account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    group_id TEXT,
    title TEXT NOT NULL,
    total TEXT NOT NULL,
    payer_member_id TEXT NOT NULL,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (expense_id, member_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expense_visibility (
    expense_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    PRIMARY KEY (expense_id, account_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE,
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_alias_edges_canonical ON alias_edges(canonical_id);
CREATE INDEX IF NOT EXISTS idx_friends_owner ON friends(owner_account_id);
CREATE INDEX IF NOT EXISTS idx_friends_member ON friends(member_id);
CREATE INDEX IF NOT EXISTS idx_claim_requests_target ON claim_requests(target_member_id);
CREATE INDEX IF NOT EXISTS idx_expense_splits_member ON expense_splits(member_id);
CREATE INDEX IF NOT EXISTS idx_expense_visibility_account ON expense_visibility(account_id);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
