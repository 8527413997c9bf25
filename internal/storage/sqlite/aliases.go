package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvhn/tally/internal/models"
)

// CanonicalOf returns the canonical identifier aliasID maps to, or ok=false
// when no edge exists.
func (c *conn) CanonicalOf(ctx context.Context, aliasID string) (string, bool, error) {
	var canonical string
	err := c.db.QueryRowContext(ctx,
		"SELECT canonical_id FROM alias_edges WHERE alias_id = ?",
		aliasID,
	).Scan(&canonical)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve alias edge: %w", err)
	}
	return canonical, true, nil
}

// AliasesOf returns every alias identifier mapped to canonicalID.
func (c *conn) AliasesOf(ctx context.Context, canonicalID string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT alias_id FROM alias_edges WHERE canonical_id = ?",
		canonicalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aliases: %w", err)
	}
	return aliases, nil
}

// InsertAliasEdge writes a new alias edge. The primary key enforces the
// functional-mapping invariant: a second edge for the same alias fails.
func (c *conn) InsertAliasEdge(ctx context.Context, edge *models.AliasEdge) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO alias_edges (alias_id, canonical_id, created_at) VALUES (?, ?, ?)",
		edge.AliasID, edge.CanonicalID, edge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alias edge: %w", err)
	}
	return nil
}
