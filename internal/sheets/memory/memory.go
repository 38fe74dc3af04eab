package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"releve/internal/core"
	ports "releve/internal/sheets"
)

var (
	_ ports.LineWriter     = (*Store)(nil)
	_ ports.LineLister     = (*Store)(nil)
	_ ports.TaxonomyReader = (*Store)(nil)
)

type entry struct {
	importID string
	line     core.BankLine
}

type Store struct {
	mu    sync.Mutex
	items []entry
}

func New() *Store {
	return &Store{}
}

// AppendLines stores the lines and returns a synthetic reference to them.
func (s *Store) AppendLines(_ context.Context, importID string, lines []core.BankLine) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.items) + 1
	for _, l := range lines {
		s.items = append(s.items, entry{importID: importID, line: l})
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.items)), nil
}

// ListLines returns the lines of an account sorted by operation date. Lines
// with the same date keep their import order.
func (s *Store) ListLines(_ context.Context, accountNumber uint32) ([]core.BankLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BankLine
	for _, e := range s.items {
		if e.line.AccountNumber() == accountNumber {
			out = append(out, e.line)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateOp().Time().Before(out[j].DateOp().Time())
	})
	return out, nil
}

// List returns the distinct top level categories and sub categories.
func (s *Store) List(_ context.Context) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cats, subs []string
	for _, e := range s.items {
		c := e.line.Category()
		if len(c) > 0 {
			cats = append(cats, c[0])
		}
		if len(c) > 1 {
			subs = append(subs, c[1:]...)
		}
	}
	return dedupe(cats), dedupe(subs), nil
}

// Len returns the number of stored lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	// Preserve first-seen order.
	return out
}
