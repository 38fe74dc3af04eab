package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncStatus tracks whether an import was copied to the spreadsheet.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

const selectImport = `
SELECT id, source, layout, line_count, created_at, sync_status, sync_ref
FROM imports`

// PendingImports returns up to limit imports not yet synced, oldest first.
// Imports whose last sync failed are retried.
func (r *SQLiteRepository) PendingImports(ctx context.Context, limit int) ([]Import, error) {
	rows, err := r.db.QueryContext(ctx,
		selectImport+` WHERE sync_status != ? ORDER BY created_at, rowid LIMIT ?`,
		string(SyncDone), limit)
	if err != nil {
		return nil, fmt.Errorf("pending imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var imp Import
		var created any
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Layout, &imp.Lines, &created, &imp.SyncStatus, &imp.SyncRef); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imp.CreatedAt = toTime(created)
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return out, nil
}

// MarkImportSynced records where the lines of an import were copied.
func (r *SQLiteRepository) MarkImportSynced(ctx context.Context, id, ref string) error {
	return r.setSyncStatus(ctx, id, SyncDone, ref)
}

// MarkImportSyncError flags an import whose copy failed.
func (r *SQLiteRepository) MarkImportSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError, "")
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id string, status SyncStatus, ref string) error {
	query := `UPDATE imports SET sync_status = ?, sync_ref = ?, synced_at = NULL WHERE id = ?`
	if status == SyncDone {
		query = `UPDATE imports SET sync_status = ?, sync_ref = ?, synced_at = CURRENT_TIMESTAMP WHERE id = ?`
	}

	res, err := r.db.ExecContext(ctx, query, string(status), ref, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("import %s: %w", id, ErrNotFound)
	}

	slog.DebugContext(ctx, "Import sync status updated", "import_id", id, "status", status)
	return nil
}
