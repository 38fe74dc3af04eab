package importer

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"releve/internal/core"
)

// FromCSVConcurrent returns the same lines as FromCSV, mapping rows on up to
// workers goroutines. Rows are read up front; the result keeps source order.
// The only error is ctx being done.
func FromCSVConcurrent(ctx context.Context, r io.Reader, l Layout, workers int) ([]core.BankLine, error) {
	if l.Validate() != nil {
		return make([]core.BankLine, 0), nil
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	var rows [][]string
	for record := range records(r, l.Delimiter) {
		rows = append(rows, record)
	}

	type slot struct {
		line core.BankLine
		ok   bool
	}
	slots := make([]slot, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			line, ok := MapRecord(row, l)
			slots[i] = slot{line: line, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := make([]core.BankLine, 0, len(rows))
	for _, s := range slots {
		if s.ok {
			lines = append(lines, s.line)
		}
	}
	return lines, nil
}
