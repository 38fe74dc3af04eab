package worker

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"releve/internal/amqp"
	"releve/internal/core"
	"releve/internal/log"
	"releve/internal/sheets/memory"
	"releve/internal/storage"
)

type failingWriter struct{ calls int }

func (w *failingWriter) AppendLines(context.Context, string, []core.BankLine) (string, error) {
	w.calls++
	return "", errors.New("quota exceeded")
}

// slowWriter holds its first append until release is closed.
type slowWriter struct {
	entered chan struct{}
	release chan struct{}
	sheet   *memory.Store

	mu    sync.Mutex
	calls int
}

func newSlowWriter() *slowWriter {
	return &slowWriter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		sheet:   memory.New(),
	}
}

func (w *slowWriter) AppendLines(ctx context.Context, importID string, lines []core.BankLine) (string, error) {
	w.mu.Lock()
	w.calls++
	first := w.calls == 1
	w.mu.Unlock()
	if first {
		close(w.entered)
		<-w.release
	}
	return w.sheet.AppendLines(ctx, importID, lines)
}

func (w *slowWriter) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// staleStore returns a fixed pending list, as a sweep that listed imports
// before another path synced them would see it.
type staleStore struct {
	*storage.SQLiteRepository
	pending []storage.Import
}

func (s staleStore) PendingImports(context.Context, int) ([]storage.Import, error) {
	return s.pending, nil
}

func testLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	return log.New(cfg)
}

func line(t *testing.T, day uint8, label string) core.BankLine {
	t.Helper()
	d, err := core.NewDate(day, core.August, 2025)
	if err != nil {
		t.Fatal(err)
	}
	return core.NewBankLine(core.BankLineParams{
		DateOp:        d,
		DateVal:       d,
		Label:         label,
		Category:      []string{"Vie quotidienne", "Alimentation"},
		Amount:        core.Euro(-12.5),
		AccountNumber: 42,
		AccountLabel:  "BoursoBank",
	})
}

// seed stores an import with n lines the way the import service does.
func seed(t *testing.T, repo *storage.SQLiteRepository, id string, n int) {
	t.Helper()
	ctx := context.Background()
	var lines []core.BankLine
	for i := 0; i < n; i++ {
		lines = append(lines, line(t, uint8(i+1), id))
	}
	if _, err := repo.AppendImport(ctx, storage.Import{ID: id, Source: id + ".csv", Layout: "boursobank", Lines: n}, lines); err != nil {
		t.Fatal(err)
	}
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "releve.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleStatementImported(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 3)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, 10, testLogger())
	ctx := context.Background()

	msg := amqp.NewStatementImportedMessage("imp-1", "imp-1.csv", "boursobank", 3, "")
	if err := w.HandleStatementImported(ctx, msg); err != nil {
		t.Fatalf("HandleStatementImported() error = %v", err)
	}
	if sheet.Len() != 3 {
		t.Fatalf("sheet holds %d lines, want 3", sheet.Len())
	}

	imp, err := repo.GetImport(ctx, "imp-1")
	if err != nil {
		t.Fatal(err)
	}
	if imp.SyncStatus != storage.SyncDone || imp.SyncRef != "mem:1-3" {
		t.Errorf("import after sync = %+v", imp)
	}

	// Redelivery does not duplicate rows.
	if err := w.HandleStatementImported(ctx, msg); err != nil {
		t.Fatalf("second HandleStatementImported() error = %v", err)
	}
	if sheet.Len() != 3 {
		t.Errorf("redelivery duplicated rows: %d lines", sheet.Len())
	}
}

func TestHandleStatementImported_UnknownImport(t *testing.T) {
	w := NewSyncWorker(newRepo(t), memory.New(), 10, testLogger())

	err := w.HandleStatementImported(context.Background(), amqp.NewStatementImportedMessage("nope", "", "", 0, ""))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHandleStatementImported_SheetsFailure(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 2)
	writer := &failingWriter{}
	w := NewSyncWorker(repo, writer, 10, testLogger())
	ctx := context.Background()

	err := w.HandleStatementImported(ctx, amqp.NewStatementImportedMessage("imp-1", "", "", 2, ""))
	if err == nil {
		t.Fatal("HandleStatementImported() should fail when sheets fails")
	}

	imp, err := repo.GetImport(ctx, "imp-1")
	if err != nil {
		t.Fatal(err)
	}
	if imp.SyncStatus != storage.SyncError {
		t.Errorf("status = %q, want error", imp.SyncStatus)
	}
}

func TestProcessPendingImports(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 1)
	seed(t, repo, "imp-2", 2)
	seed(t, repo, "imp-3", 1)
	sheet := memory.New()
	w := NewSyncWorker(repo, sheet, 2, testLogger())
	ctx := context.Background()

	if err := w.ProcessPendingImports(ctx); err != nil {
		t.Fatalf("ProcessPendingImports() error = %v", err)
	}
	if sheet.Len() != 3 {
		t.Fatalf("first batch copied %d lines, want 3", sheet.Len())
	}

	if err := w.ProcessPendingImports(ctx); err != nil {
		t.Fatalf("ProcessPendingImports() error = %v", err)
	}
	if sheet.Len() != 4 {
		t.Fatalf("second batch copied %d lines total, want 4", sheet.Len())
	}

	pending, err := repo.PendingImports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("still pending: %+v", pending)
	}
}

func TestStartupSyncCheck_ContinuesAfterFailure(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 1)
	seed(t, repo, "imp-2", 1)
	writer := &failingWriter{}
	w := NewSyncWorker(repo, writer, 1, testLogger())

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if writer.calls != 2 {
		t.Errorf("writer called %d times, want 2", writer.calls)
	}
}

func TestSyncImport_EmptyImportMarkedSynced(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	if err := repo.RecordImport(ctx, storage.Import{ID: "empty", Source: "e.csv", Layout: "boursobank"}); err != nil {
		t.Fatal(err)
	}
	writer := &failingWriter{}
	w := NewSyncWorker(repo, writer, 10, testLogger())

	if err := w.ProcessPendingImports(ctx); err != nil {
		t.Fatal(err)
	}
	if writer.calls != 0 {
		t.Errorf("writer should not be called for an empty import")
	}
	imp, err := repo.GetImport(ctx, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if imp.SyncStatus != storage.SyncDone {
		t.Errorf("status = %q, want synced", imp.SyncStatus)
	}
}

func TestSync_EventDuringSweepAppendsOnce(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 2)
	writer := newSlowWriter()
	w := NewSyncWorker(repo, writer, 10, testLogger())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.ProcessPendingImports(ctx) }()
	<-writer.entered

	msg := amqp.NewStatementImportedMessage("imp-1", "imp-1.csv", "boursobank", 2, "")
	if err := w.HandleStatementImported(ctx, msg); err != nil {
		t.Fatalf("HandleStatementImported() error = %v", err)
	}
	close(writer.release)
	if err := <-done; err != nil {
		t.Fatalf("ProcessPendingImports() error = %v", err)
	}

	if writer.Calls() != 1 {
		t.Errorf("import appended %d times to the sheet, want 1", writer.Calls())
	}
	if writer.sheet.Len() != 2 {
		t.Errorf("sheet holds %d lines, want 2", writer.sheet.Len())
	}
}

func TestSync_StalePendingListSkipsSyncedImport(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, "imp-1", 2)
	ctx := context.Background()
	pending, err := repo.PendingImports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	sheet := memory.New()
	w := NewSyncWorker(staleStore{SQLiteRepository: repo, pending: pending}, sheet, 10, testLogger())

	msg := amqp.NewStatementImportedMessage("imp-1", "imp-1.csv", "boursobank", 2, "")
	if err := w.HandleStatementImported(ctx, msg); err != nil {
		t.Fatalf("HandleStatementImported() error = %v", err)
	}
	if err := w.ProcessPendingImports(ctx); err != nil {
		t.Fatalf("ProcessPendingImports() error = %v", err)
	}
	if sheet.Len() != 2 {
		t.Errorf("sheet holds %d lines, want 2", sheet.Len())
	}
}
