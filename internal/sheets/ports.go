package sheets

import (
	"context"

	"releve/internal/core"
)

// Ports for outbound adapters.
type (
	// LineWriter stores the lines of one import. It returns a reference to
	// where they landed (row range, batch id).
	LineWriter interface {
		AppendLines(ctx context.Context, importID string, lines []core.BankLine) (ref string, err error)
	}

	// LineLister returns stored lines of an account, oldest operation first.
	LineLister interface {
		ListLines(ctx context.Context, accountNumber uint32) ([]core.BankLine, error)
	}

	// TaxonomyReader lists the distinct categories seen so far: top level
	// categories and their sub categories.
	TaxonomyReader interface {
		List(ctx context.Context) (categories []string, subcategories []string, err error)
	}
)
