package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"releve/internal/core"
	ports "releve/internal/sheets"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

var (
	_ ports.LineWriter     = (*SQLiteRepository)(nil)
	_ ports.LineLister     = (*SQLiteRepository)(nil)
	_ ports.TaxonomyReader = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

// Import is the record of one statement file import.
type Import struct {
	ID        string
	Source    string
	Layout    string
	Lines     int
	CreatedAt time.Time

	SyncStatus SyncStatus
	SyncRef    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertLine = `
INSERT INTO bank_lines (
    import_id, position, date_op, date_val, label, category, counterparty,
    amount, comment, account_number, account_label, account_balance
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// AppendLines implements sheets.LineWriter. All lines of the call are
// written in one transaction; the reference is the import id.
func (r *SQLiteRepository) AppendLines(ctx context.Context, importID string, lines []core.BankLine) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLines(ctx, tx, importID, lines); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit lines: %w", err)
	}

	slog.InfoContext(ctx, "Bank lines saved to SQLite",
		"import_id", importID,
		"lines", len(lines))

	return importID, nil
}

// AppendImport stores the import record and its lines in one transaction.
// Either both are kept or neither is.
func (r *SQLiteRepository) AppendImport(ctx context.Context, imp Import, lines []core.BankLine) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertImport, imp.ID, imp.Source, imp.Layout, imp.Lines); err != nil {
		return "", fmt.Errorf("record import: %w", err)
	}
	if err := insertLines(ctx, tx, imp.ID, lines); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Import saved to SQLite",
		"import_id", imp.ID,
		"source", imp.Source,
		"lines", len(lines))

	return imp.ID, nil
}

func insertLines(ctx context.Context, tx *sql.Tx, importID string, lines []core.BankLine) error {
	stmt, err := tx.PrepareContext(ctx, insertLine)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range lines {
		category, err := json.Marshal(l.Category())
		if err != nil {
			return fmt.Errorf("encode category: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			importID,
			i,
			l.DateOp().Format('-'),
			l.DateVal().Format('-'),
			l.Label(),
			string(category),
			l.Counterparty(),
			l.Amount().Value(),
			l.Comment(),
			int64(l.AccountNumber()),
			l.AccountLabel(),
			l.AccountBalance().Value(),
		)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i, err)
		}
	}
	return nil
}

const insertImport = `INSERT INTO imports (id, source, layout, line_count) VALUES (?, ?, ?, ?)`

// RecordImport stores the summary of an import.
func (r *SQLiteRepository) RecordImport(ctx context.Context, imp Import) error {
	if _, err := r.db.ExecContext(ctx, insertImport, imp.ID, imp.Source, imp.Layout, imp.Lines); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// GetImport returns the summary of an import, or ErrNotFound.
func (r *SQLiteRepository) GetImport(ctx context.Context, id string) (Import, error) {
	var imp Import
	var created any
	err := r.db.QueryRowContext(ctx, selectImport+` WHERE id = ?`, id).
		Scan(&imp.ID, &imp.Source, &imp.Layout, &imp.Lines, &created, &imp.SyncStatus, &imp.SyncRef)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, fmt.Errorf("import %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Import{}, fmt.Errorf("get import: %w", err)
	}
	imp.CreatedAt = toTime(created)
	return imp, nil
}

// toTime accepts what the driver returns for a DATETIME column.
func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

const selectLine = `
SELECT date_op, date_val, label, category, counterparty, amount, comment,
       account_number, account_label, account_balance
FROM bank_lines`

// ListLines implements sheets.LineLister.
func (r *SQLiteRepository) ListLines(ctx context.Context, accountNumber uint32) ([]core.BankLine, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLine+` WHERE account_number = ? ORDER BY date_op, id`, int64(accountNumber))
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	return scanLines(rows)
}

// LinesByImport returns the lines of one import in file order.
func (r *SQLiteRepository) LinesByImport(ctx context.Context, importID string) ([]core.BankLine, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLine+` WHERE import_id = ? ORDER BY position`, importID)
	if err != nil {
		return nil, fmt.Errorf("lines by import: %w", err)
	}
	return scanLines(rows)
}

// List implements sheets.TaxonomyReader.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, []string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category FROM bank_lines ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats, subs []string
	seenCat := map[string]bool{}
	seenSub := map[string]bool{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, nil, fmt.Errorf("scan category: %w", err)
		}
		var path []string
		if err := json.Unmarshal([]byte(raw), &path); err != nil {
			return nil, nil, fmt.Errorf("decode category: %w", err)
		}
		for i, c := range path {
			if c == "" {
				continue
			}
			if i == 0 && !seenCat[c] {
				seenCat[c] = true
				cats = append(cats, c)
			}
			if i > 0 && !seenSub[c] {
				seenSub[c] = true
				subs = append(subs, c)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, subs, nil
}

func scanLines(rows *sql.Rows) ([]core.BankLine, error) {
	defer rows.Close()

	var out []core.BankLine
	for rows.Next() {
		var (
			dateOp, dateVal, category string
			p                         core.BankLineParams
			amount, balance           float64
			account                   int64
		)
		err := rows.Scan(&dateOp, &dateVal, &p.Label, &category, &p.Counterparty,
			&amount, &p.Comment, &account, &p.AccountLabel, &balance)
		if err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}

		var ok bool
		if p.DateOp, ok = core.ParseDate(dateOp, '-'); !ok {
			return nil, fmt.Errorf("stored operation date %q is invalid", dateOp)
		}
		if p.DateVal, ok = core.ParseDate(dateVal, '-'); !ok {
			return nil, fmt.Errorf("stored value date %q is invalid", dateVal)
		}
		if err := json.Unmarshal([]byte(category), &p.Category); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		p.Amount = core.AmountFromValue(amount)
		p.AccountBalance = core.AmountFromValue(balance)
		p.AccountNumber = uint32(account)

		out = append(out, core.NewBankLine(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return out, nil
}
