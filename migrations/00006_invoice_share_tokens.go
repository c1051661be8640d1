package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInvoiceShareTokens, downInvoiceShareTokens)
}

// upInvoiceShareTokens adds the share token and archive columns, then gives every existing
// invoice a token before the column is made unique and required
func upInvoiceShareTokens(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE invoices ADD COLUMN share_token VARCHAR(64)`,
		`ALTER TABLE invoices ADD COLUMN archive_path VARCHAR(500)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM invoices WHERE share_token IS NULL`)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		token, err := domain.NewShareToken()
		if err != nil {
			return fmt.Errorf("generate share token: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE invoices SET share_token = $1 WHERE id = $2`, token, id); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `ALTER TABLE invoices ALTER COLUMN share_token SET NOT NULL;
		CREATE UNIQUE INDEX idx_invoices_share_token ON invoices(share_token)`)
	return err
}

func downInvoiceShareTokens(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_invoices_share_token;
		ALTER TABLE invoices DROP COLUMN IF EXISTS archive_path;
		ALTER TABLE invoices DROP COLUMN IF EXISTS share_token`)
	return err
}
