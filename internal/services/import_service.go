package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"releve/internal/amqp"
	"releve/internal/core"
	"releve/internal/importer"
	"releve/internal/log"
	"releve/internal/sheets"
	"releve/internal/storage"
)

// Publisher announces finished imports.
type Publisher interface {
	PublishStatementImported(ctx context.Context, msg *amqp.StatementImportedMessage) error
}

// ImportWriter is implemented by sinks that keep a record per import. The
// record and the lines are stored together or not at all.
type ImportWriter interface {
	AppendImport(ctx context.Context, imp storage.Import, lines []core.BankLine) (string, error)
}

// Result describes one imported statement file.
type Result struct {
	ImportID string
	Source   string
	Layout   string
	Lines    []core.BankLine
	// Ref is the sink's reference for the stored lines.
	Ref string
}

// ImportService parses statement files, stores their lines and announces the import.
type ImportService struct {
	writer    sheets.LineWriter
	publisher Publisher
	layout    importer.Layout
	workers   int
	logger    *log.Logger
	newID     func() string
}

// NewImportService wires the service. publisher may be nil.
func NewImportService(writer sheets.LineWriter, publisher Publisher, layout importer.Layout, workers int, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if workers < 1 {
		workers = 1
	}
	return &ImportService{
		writer:    writer,
		publisher: publisher,
		layout:    layout,
		workers:   workers,
		logger:    logger.WithComponent(log.ComponentImport),
		newID:     uuid.NewString,
	}
}

// ImportFile imports the statement at path, using the file name as source.
func (s *ImportService) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	return s.Import(ctx, filepath.Base(path), f)
}

// Import parses r with the service layout, stores the lines and publishes a
// StatementImported event. Rows that do not map are dropped. A failed
// publish is logged only, the lines are already stored.
func (s *ImportService) Import(ctx context.Context, source string, r io.Reader) (Result, error) {
	start := time.Now()
	res := Result{
		ImportID: s.newID(),
		Source:   source,
		Layout:   s.layout.Name,
	}
	logger := s.logger.WithFields(log.NewFields().WithImport(res.ImportID, source, s.layout.Name))

	lines, err := s.parse(ctx, r)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", source, err)
	}
	res.Lines = lines

	if len(lines) == 0 {
		logger.WarnContext(ctx, "No bank line found, nothing stored")
		return res, nil
	}

	ref, err := s.store(ctx, res)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store bank lines",
			log.FieldOperation, log.OpStore,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return Result{}, fmt.Errorf("store lines: %w", err)
	}
	res.Ref = ref

	if err := s.publish(ctx, res); err != nil {
		logger.ErrorContext(ctx, "Failed to publish statement imported message",
			log.FieldOperation, log.OpPublish,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}

	logger.InfoContext(ctx, "Statement imported",
		log.FieldLines, len(lines),
		log.FieldSheetsRef, ref,
		log.FieldDuration, time.Since(start).Milliseconds())

	return res, nil
}

func (s *ImportService) parse(ctx context.Context, r io.Reader) ([]core.BankLine, error) {
	if err := s.layout.Validate(); err != nil {
		return nil, err
	}
	if s.workers > 1 {
		return importer.FromCSVConcurrent(ctx, r, s.layout, s.workers)
	}
	return importer.FromCSV(r, s.layout), nil
}

func (s *ImportService) store(ctx context.Context, res Result) (string, error) {
	if w, ok := s.writer.(ImportWriter); ok {
		return w.AppendImport(ctx, storage.Import{
			ID:     res.ImportID,
			Source: res.Source,
			Layout: res.Layout,
			Lines:  len(res.Lines),
		}, res.Lines)
	}
	return s.writer.AppendLines(ctx, res.ImportID, res.Lines)
}

func (s *ImportService) publish(ctx context.Context, res Result) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping statement imported message")
		return nil
	}

	msg := amqp.NewStatementImportedMessage(res.ImportID, res.Source, res.Layout, len(res.Lines), res.Ref)
	return s.publisher.PublishStatementImported(ctx, msg)
}
