package transactions

import "github.com/lucasgomesc1993/financas-api/internal/accounts"

type balanceDelta struct {
	AccountID string
	Amount    int64
}

func effect(t Transaction) int64 {
	direction := ""
	if t.Direction != nil {
		direction = *t.Direction
	}
	return accounts.Effect(t.Type, direction, t.Amount, t.Paid)
}

// balanceDeltas lists the balance moves that take the accounts from old's
// effect to next's. Moves on the same account are merged and zero moves
// dropped; the old account comes first.
func balanceDeltas(old, next Transaction) []balanceDelta {
	var out []balanceDelta
	add := func(accountID *string, amount int64) {
		if accountID == nil || amount == 0 {
			return
		}
		for i := range out {
			if out[i].AccountID == *accountID {
				out[i].Amount += amount
				return
			}
		}
		out = append(out, balanceDelta{AccountID: *accountID, Amount: amount})
	}
	add(old.AccountID, -effect(old))
	add(next.AccountID, effect(next))

	kept := out[:0]
	for _, d := range out {
		if d.Amount != 0 {
			kept = append(kept, d)
		}
	}
	return kept
}
