package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"releve/internal/amqp"
	"releve/internal/core"
	"releve/internal/log"
	"releve/internal/sheets"
	"releve/internal/storage"
)

// ImportStore is the local side of the sync: imports and their lines.
type ImportStore interface {
	GetImport(ctx context.Context, id string) (storage.Import, error)
	LinesByImport(ctx context.Context, importID string) ([]core.BankLine, error)
	PendingImports(ctx context.Context, limit int) ([]storage.Import, error)
	MarkImportSynced(ctx context.Context, id, ref string) error
	MarkImportSyncError(ctx context.Context, id string) error
}

// SyncWorker copies imported lines from SQLite to the spreadsheet.
type SyncWorker struct {
	store     ImportStore
	sheets    sheets.LineWriter
	batchSize int
	logger    *log.Logger

	// inFlight holds the ids being copied, shared by the consumer and the sweep.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSyncWorker(store ImportStore, sheets sheets.LineWriter, batchSize int, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		sheets:    sheets,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentSheets),
		inFlight:  make(map[string]struct{}),
	}
}

// HandleStatementImported syncs the import announced by msg. Imports
// already synced are skipped, so redelivered messages do not duplicate rows.
func (w *SyncWorker) HandleStatementImported(ctx context.Context, msg *amqp.StatementImportedMessage) error {
	w.logger.InfoContext(ctx, "Processing statement imported message",
		log.FieldImportID, msg.ImportID,
		log.FieldSource, msg.Source,
		log.FieldLines, msg.Lines)

	return w.syncImport(ctx, msg.ImportID)
}

// ProcessPendingImports syncs one batch of imports that were never synced
// or whose sync failed. It covers lost AMQP messages.
func (w *SyncWorker) ProcessPendingImports(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck syncs a larger batch of pending imports at startup to
// recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending imports found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.PendingImports(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending imports: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending imports", "count", len(pending))

	for _, imp := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if err := w.syncImport(ctx, imp.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync import",
				log.FieldImportID, imp.ID,
				log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// claim marks id as being copied. It reports false when another caller
// already holds it.
func (w *SyncWorker) claim(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[id]; busy {
		return false
	}
	w.inFlight[id] = struct{}{}
	return true
}

func (w *SyncWorker) release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, id)
}

// syncImport copies one import to the sheet. The status is read again after
// the claim, so a stale pending list never copies an import twice.
func (w *SyncWorker) syncImport(ctx context.Context, id string) error {
	if !w.claim(id) {
		w.logger.InfoContext(ctx, "Import sync already in progress, skipping",
			log.FieldImportID, id)
		return nil
	}
	defer w.release(id)

	imp, err := w.store.GetImport(ctx, id)
	if err != nil {
		return fmt.Errorf("get import: %w", err)
	}
	if imp.SyncStatus == storage.SyncDone {
		w.logger.InfoContext(ctx, "Import already synced, skipping",
			log.FieldImportID, imp.ID,
			log.FieldSheetsRef, imp.SyncRef)
		return nil
	}

	lines, err := w.store.LinesByImport(ctx, imp.ID)
	if err != nil {
		return fmt.Errorf("load lines: %w", err)
	}
	if len(lines) == 0 {
		// Nothing to copy; do not retry forever.
		return w.markSynced(ctx, imp.ID, "")
	}

	ref, err := w.sheets.AppendLines(ctx, imp.ID, lines)
	if err != nil {
		if markErr := w.store.MarkImportSyncError(ctx, imp.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldImportID, imp.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.markSynced(ctx, imp.ID, ref); err != nil {
		// The rows are in the sheet; a retry would duplicate them.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldImportID, imp.ID,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced import",
		log.FieldImportID, imp.ID,
		log.FieldSource, imp.Source,
		log.FieldLines, len(lines),
		log.FieldSheetsRef, ref)
	return nil
}

func (w *SyncWorker) markSynced(ctx context.Context, id, ref string) error {
	err := w.store.MarkImportSynced(ctx, id, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("import vanished during sync: %w", err)
	}
	return err
}
