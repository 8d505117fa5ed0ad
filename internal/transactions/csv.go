package transactions

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/money"
)

const maxImportRows = 5000

var (
	ErrEmptyCSV    = errors.New("csv has no rows")
	ErrCSVTooLarge = fmt.Errorf("csv has more than %d rows", maxImportRows)
)

type csvRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Type        string `csv:"type"`
	Category    string `csv:"category"`
	Paid        string `csv:"paid"`
	Notes       string `csv:"notes"`
}

// ImportRow is a parsed and validated CSV line. Line is the 1-based line
// number in the file, counting the header.
type ImportRow struct {
	Line        int
	Date        time.Time
	Description string
	Amount      int64
	Type        string
	Category    string
	Paid        bool
	Notes       string
}

type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	msgs := make([]string, 0, len(e.Rows))
	for i, r := range e.Rows {
		if i == 5 {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(e.Rows)-i))
			break
		}
		msgs = append(msgs, fmt.Sprintf("line %d: %s", r.Line, r.Message))
	}
	return "invalid csv: " + strings.Join(msgs, "; ")
}

// EncodeCSV writes the account movements in items using the same columns
// DecodeCSV reads. Card purchases are skipped, since they never touch an
// account, and transfer legs become income or expense by direction.
func EncodeCSV(items []Transaction) ([]byte, error) {
	rows := make([]csvRow, 0, len(items))
	for _, t := range items {
		if t.AccountID == nil && t.CardID != nil {
			continue
		}
		row := csvRow{
			Date:        t.Date.Format(httpx.DateLayout),
			Description: t.Description,
			Amount:      money.PlainString(t.Amount),
			Type:        exportType(t),
			Paid:        fmt.Sprint(t.Paid),
			Notes:       t.Notes,
		}
		if t.CategoryName != nil {
			row.Category = *t.CategoryName
		}
		rows = append(rows, row)
	}
	return gocsv.MarshalBytes(&rows)
}

func exportType(t Transaction) string {
	if t.Type != TypeTransfer {
		return t.Type
	}
	if t.Direction != nil && *t.Direction == "in" {
		return TypeIncome
	}
	return TypeExpense
}

// DecodeCSV parses an import file. Every bad line is reported in a single
// *ImportError so the caller can reject the whole file.
func DecodeCSV(data []byte) ([]ImportRow, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyCSV
	}

	var raw []*csvRow
	if err := gocsv.UnmarshalBytes(data, &raw); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrEmptyCSV
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyCSV
	}
	if len(raw) > maxImportRows {
		return nil, ErrCSVTooLarge
	}

	out := make([]ImportRow, 0, len(raw))
	var bad []RowError
	for i, r := range raw {
		line := i + 2
		row, err := parseRow(r)
		if err != nil {
			bad = append(bad, RowError{Line: line, Message: err.Error()})
			continue
		}
		row.Line = line
		out = append(out, row)
	}
	if len(bad) > 0 {
		return nil, &ImportError{Rows: bad}
	}
	return out, nil
}

func parseRow(r *csvRow) (ImportRow, error) {
	var row ImportRow

	date, err := parseCSVDate(r.Date)
	if err != nil {
		return row, err
	}
	row.Date = date

	row.Description = strings.TrimSpace(r.Description)
	if row.Description == "" {
		return row, errors.New("description required")
	}

	amount := strings.TrimSpace(r.Amount)
	negative := strings.HasPrefix(amount, "-")
	cents, err := money.ParseCents(strings.TrimPrefix(amount, "-"))
	if err != nil || cents == 0 {
		return row, fmt.Errorf("invalid amount %q", r.Amount)
	}
	row.Amount = cents

	switch {
	case strings.TrimSpace(r.Type) == "" && negative:
		row.Type = TypeExpense
	case strings.TrimSpace(r.Type) == "":
		row.Type = TypeIncome
	default:
		row.Type = normalizeType(r.Type)
		if row.Type == "" {
			return row, fmt.Errorf("type must be income or expense, got %q", r.Type)
		}
	}

	paid, err := parsePaid(r.Paid)
	if err != nil {
		return row, err
	}
	row.Paid = paid

	row.Category = strings.TrimSpace(r.Category)
	row.Notes = strings.TrimSpace(r.Notes)
	return row, nil
}

func parseCSVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{httpx.DateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parsePaid(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "1", "sim", "s", "yes", "y":
		return true, nil
	case "false", "0", "não", "nao", "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid paid value %q", s)
}
