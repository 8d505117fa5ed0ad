package budgets

import "github.com/shopspring/decimal"

const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"
)

// warnPercent is where a budget starts warning.
const warnPercent = 80

type Progress struct {
	Spent     int64   `json:"spent"`
	Remaining int64   `json:"remaining"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
}

// ComputeProgress compares spent against the budgeted amount. Percent is
// rounded to one decimal place; status thresholds use exact cents.
func ComputeProgress(amount, spent int64) Progress {
	p := Progress{Spent: spent, Remaining: amount - spent}

	if amount > 0 {
		p.Percent = decimal.NewFromInt(spent).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(amount)).
			Round(1).
			InexactFloat64()
	}

	switch {
	case spent > amount:
		p.Status = StatusExceeded
	case spent*100 >= amount*warnPercent:
		p.Status = StatusWarning
	default:
		p.Status = StatusOK
	}
	return p
}
