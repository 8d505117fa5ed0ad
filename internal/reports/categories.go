package reports

import (
	"github.com/shopspring/decimal"
)

type CategoryRow struct {
	CategoryID *string         `json:"category_id,omitempty"`
	Category   string          `json:"category"`
	Total      int64           `json:"total"`
	Count      int64           `json:"count"`
	Share      decimal.Decimal `json:"share"`
}

const uncategorized = "Sem categoria"

// withShares fills Share as each row's fraction of the grand total,
// rounded to four places.
func withShares(rows []CategoryRow) []CategoryRow {
	var sum int64
	for _, r := range rows {
		sum += r.Total
	}
	if sum == 0 {
		return rows
	}
	total := decimal.NewFromInt(sum)
	for i := range rows {
		rows[i].Share = decimal.NewFromInt(rows[i].Total).Div(total).Round(4)
	}
	return rows
}
