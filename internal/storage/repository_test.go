package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"releve/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "releve.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func mkLine(t *testing.T, day uint8, label string, account uint32, amount float64, cats ...string) core.BankLine {
	t.Helper()
	d, err := core.NewDate(day, core.August, 2025)
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	return core.NewBankLine(core.BankLineParams{
		DateOp:         d,
		DateVal:        d,
		Label:          label,
		Category:       cats,
		Counterparty:   "BAZ",
		Amount:         core.Euro(amount),
		Comment:        "note",
		AccountNumber:  account,
		AccountLabel:   "BoursoBank",
		AccountBalance: core.Euro(1057.24),
	})
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("unexpected schema version %d dirty=%v", version, dirty)
	}

	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
}

func TestAppendAndListLines(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	lines := []core.BankLine{
		mkLine(t, 28, "third", 42, -3.333, "Vie quotidienne", "Alimentation"),
		mkLine(t, 26, "first", 42, -101, "Loisirs", "Bar"),
		mkLine(t, 27, "other account", 7, 12.5),
		mkLine(t, 26, "second", 42, 2500, "Revenus"),
	}
	ref, err := repo.AppendLines(ctx, "imp-1", lines)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "imp-1" {
		t.Fatalf("unexpected ref %q", ref)
	}

	got, err := repo.ListLines(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got))
	}
	want := []string{"first", "second", "third"}
	for i, l := range got {
		if l.Label() != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, l.Label(), want[i])
		}
	}

	third := got[2]
	if third.Amount() != core.Euro(-3.333) {
		t.Fatalf("amount must keep full precision, got %v", third.Amount().Value())
	}
	if c := third.Category(); len(c) != 2 || c[0] != "Vie quotidienne" || c[1] != "Alimentation" {
		t.Fatalf("unexpected category %v", c)
	}
	if third.DateOp() != lines[0].DateOp() || third.Comment() != "note" || third.AccountBalance() != core.Euro(1057.24) {
		t.Fatalf("unexpected line %v", third)
	}

	byImport, err := repo.LinesByImport(ctx, "imp-1")
	if err != nil {
		t.Fatalf("lines by import: %v", err)
	}
	if len(byImport) != 4 || byImport[0].Label() != "third" || byImport[3].Label() != "second" {
		t.Fatalf("lines by import lost file order: %v", byImport)
	}
	if len(byImport[2].Category()) != 0 {
		t.Fatalf("expected empty category, got %v", byImport[2].Category())
	}
}

func TestListCategories(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AppendLines(ctx, "imp-1", []core.BankLine{
		mkLine(t, 1, "a", 1, 1, "Loisirs", "Bar"),
		mkLine(t, 2, "b", 1, 1, "Loisirs", "Cinéma"),
		mkLine(t, 3, "c", 1, 1, "Logement", "Bar"),
		mkLine(t, 4, "d", 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	cats, subs, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0] != "Loisirs" || cats[1] != "Logement" {
		t.Fatalf("unexpected cats %v", cats)
	}
	if len(subs) != 2 || subs[0] != "Bar" || subs[1] != "Cinéma" {
		t.Fatalf("unexpected subs %v", subs)
	}
}

func TestRecordAndGetImport(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.RecordImport(ctx, Import{ID: "imp-9", Source: "releve.csv", Layout: "boursobank", Lines: 3}); err != nil {
		t.Fatalf("record: %v", err)
	}
	imp, err := repo.GetImport(ctx, "imp-9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if imp.Source != "releve.csv" || imp.Layout != "boursobank" || imp.Lines != 3 {
		t.Fatalf("unexpected import %+v", imp)
	}

	_, err = repo.GetImport(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.RecordImport(ctx, Import{ID: "imp-9", Source: "x", Layout: "y"}); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestAppendImport(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	lines := []core.BankLine{
		mkLine(t, 26, "FOO1", 42, -101, "Loisirs", "Bar"),
		mkLine(t, 27, "CB CARREFOUR", 42, -45.1, "Vie quotidienne", "Alimentation"),
	}

	ref, err := repo.AppendImport(ctx, Import{ID: "imp-1", Source: "aout.csv", Layout: "boursobank", Lines: 2}, lines)
	if err != nil || ref != "imp-1" {
		t.Fatalf("append import: ref=%q err=%v", ref, err)
	}
	imp, err := repo.GetImport(ctx, "imp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if imp.Lines != 2 || imp.SyncStatus != SyncPending {
		t.Fatalf("unexpected import %+v", imp)
	}

	// A duplicate id rolls the lines back with the record.
	_, err = repo.AppendImport(ctx, Import{ID: "imp-1", Source: "again.csv", Layout: "boursobank", Lines: 1}, lines[:1])
	if err == nil {
		t.Fatal("expected duplicate id to fail")
	}
	stored, err := repo.LinesByImport(ctx, "imp-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("got %d lines for imp-1 after failed append, want 2", len(stored))
	}
}

func TestImportSyncStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"imp-1", "imp-2", "imp-3"} {
		if err := repo.RecordImport(ctx, Import{ID: id, Source: id + ".csv", Layout: "boursobank", Lines: 1}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	imp, err := repo.GetImport(ctx, "imp-1")
	if err != nil {
		t.Fatal(err)
	}
	if imp.SyncStatus != SyncPending {
		t.Fatalf("new import status = %q, want pending", imp.SyncStatus)
	}

	if err := repo.MarkImportSynced(ctx, "imp-1", "Releve!A2:K2"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkImportSyncError(ctx, "imp-2"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	imp, err = repo.GetImport(ctx, "imp-1")
	if err != nil {
		t.Fatal(err)
	}
	if imp.SyncStatus != SyncDone || imp.SyncRef != "Releve!A2:K2" {
		t.Fatalf("unexpected synced import %+v", imp)
	}

	pending, err := repo.PendingImports(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "imp-2" || pending[1].ID != "imp-3" {
		t.Fatalf("unexpected pending imports %+v", pending)
	}
	if pending[0].SyncStatus != SyncError {
		t.Fatalf("imp-2 status = %q, want error", pending[0].SyncStatus)
	}

	limited, err := repo.PendingImports(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d imports", len(limited))
	}

	if err := repo.MarkImportSynced(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
