package budgets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		spent   int64
		status  string
		percent float64
	}{
		{"nothing spent", 50000, 0, StatusOK, 0},
		{"just under warning", 50000, 39999, StatusOK, 80},
		{"warning starts at 80%", 50000, 40000, StatusWarning, 80},
		{"exactly spent", 50000, 50000, StatusWarning, 100},
		{"one cent over", 50000, 50001, StatusExceeded, 100},
		{"well over", 30000, 45000, StatusExceeded, 150},
		{"thirds", 30000, 10000, StatusOK, 33.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ComputeProgress(tc.amount, tc.spent)
			assert.Equal(t, tc.status, p.Status)
			assert.InDelta(t, tc.percent, p.Percent, 0.001)
			assert.Equal(t, tc.amount-tc.spent, p.Remaining)
		})
	}
}
