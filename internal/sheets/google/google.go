package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"releve/internal/core"
	ports "releve/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Columns written for each line, A to K.
var header = []any{
	"date_op", "date_val", "label", "category", "counterparty", "amount",
	"comment", "account_number", "account_label", "account_balance", "import_id",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.LineWriter     = (*Client)(nil)
	_ ports.LineLister     = (*Client)(nil)
	_ ports.TaxonomyReader = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	// ClientOptions are passed to the Sheets service as is, after the
	// credentials. Tests use them to point at a local server.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", opts.SheetName)

	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheetName: opts.SheetName}, nil
}

func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case opts.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.ServiceAccountJSON)
	case opts.ServiceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.ServiceAccountFile)
		data, err := os.ReadFile(opts.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	case len(opts.ClientOptions) > 0:
		return nil, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// AppendLines appends one row per line after the last row of the sheet and
// returns the updated range.
func (c *Client) AppendLines(ctx context.Context, importID string, lines []core.BankLine) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(lines) == 0 {
		return "", nil
	}

	values := make([][]any, 0, len(lines))
	for _, l := range lines {
		values = append(values, lineRow(l, importID))
	}

	rng := fmt.Sprintf("%s!A:K", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Lines appended to sheet", "import_id", importID, "lines", len(lines), "sheets_ref", ref)
	return ref, nil
}

// EnsureHeader writes the column names on the first row when that row is
// empty. A sheet that already starts with data is left alone.
func (c *Client) EnsureHeader(ctx context.Context) (bool, error) {
	first, err := c.read(ctx, "A1:K1")
	if err != nil {
		return false, err
	}
	if len(first) > 0 && len(first[0]) > 0 {
		return false, nil
	}

	rng := fmt.Sprintf("%s!A1:K1", c.sheetName)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("write header %s: %w", rng, err)
	}
	return true, nil
}

// ListLines reads back the lines of one account. Rows that do not parse,
// such as the header, are skipped.
func (c *Client) ListLines(ctx context.Context, accountNumber uint32) ([]core.BankLine, error) {
	values, err := c.read(ctx, "A:K")
	if err != nil {
		return nil, err
	}
	var out []core.BankLine
	for _, row := range values {
		l, ok := parseLineRow(row)
		if !ok || l.AccountNumber() != accountNumber {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// List returns the distinct categories and sub categories of the sheet.
func (c *Client) List(ctx context.Context) ([]string, []string, error) {
	values, err := c.read(ctx, "D2:D")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read categories: %w", err)
	}
	cats, subs := parseCategories(values)
	return cats, subs, nil
}

func (c *Client) read(ctx context.Context, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", c.sheetName, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
