package invoices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/accounts"
	"github.com/lucasgomesc1993/financas-api/internal/cards"
	"github.com/lucasgomesc1993/financas-api/internal/categories"
	"github.com/lucasgomesc1993/financas-api/internal/database"
	"github.com/lucasgomesc1993/financas-api/internal/money"
)

type Repository struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool, Now: time.Now}
}

func (r *Repository) today() time.Time {
	y, m, d := r.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const selectCols = `
	i.id::text, i.card_id::text, k.name, i.user_id::text, i.reference, i.closing_date, i.due_date,
	i.total, i.paid_amount, i.paid_at, i.status, i.created_at`

const fromJoin = `FROM invoices i JOIN cards k ON k.id = i.card_id`

func scan(row pgx.Row, today time.Time) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.CardID, &inv.CardName, &inv.UserID, &inv.Reference,
		&inv.ClosingDate, &inv.DueDate, &inv.Total, &inv.PaidAmount, &inv.PaidAt, &inv.Status, &inv.CreatedAt)
	if database.IsNoRows(err) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	inv.refresh(today)
	return inv, nil
}

func (r *Repository) list(ctx context.Context, today time.Time, where string, args ...any) ([]Invoice, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+` `+fromJoin+`
		WHERE `+where+`
		ORDER BY i.closing_date DESC, k.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scan(rows, today)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *Repository) ListByCard(ctx context.Context, userID, cardID string) ([]Invoice, error) {
	if _, err := cards.Get(ctx, r.Pool, userID, cardID); err != nil {
		if errors.Is(err, cards.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return r.list(ctx, r.today(), `i.user_id = $1 AND i.card_id = $2`, userID, cardID)
}

// List returns every invoice of the user, optionally only those whose
// derived status is status.
func (r *Repository) List(ctx context.Context, userID, status string) ([]Invoice, error) {
	all, err := r.list(ctx, r.today(), `i.user_id = $1`, userID)
	if err != nil || status == "" {
		return all, err
	}
	out := make([]Invoice, 0, len(all))
	for _, inv := range all {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Invoice, error) {
	inv, err := scan(r.Pool.QueryRow(ctx, `SELECT `+selectCols+` `+fromJoin+` WHERE i.id = $1 AND i.user_id = $2`, id, userID), r.today())
	if err != nil {
		return Invoice{}, err
	}
	if inv.Items, err = r.items(ctx, id); err != nil {
		return Invoice{}, err
	}
	if inv.Payments, err = r.payments(ctx, id); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *Repository) items(ctx context.Context, invoiceID string) ([]Item, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT t.id::text, t.purchase_id::text, t.description, t.amount, t.date, t.category_id::text, c.name,
		       t.installment, t.installments, t.notes
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.invoice_id = $1 AND t.card_id IS NOT NULL
		ORDER BY t.date, t.created_at
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.Description, &it.Amount, &it.Date, &it.CategoryID,
			&it.CategoryName, &it.Installment, &it.Installments, &it.Notes); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) payments(ctx context.Context, invoiceID string) ([]Payment, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT p.id::text, p.invoice_id::text, p.account_id::text, a.name, p.transaction_id::text,
		       p.amount, p.paid_at, p.created_at
		FROM invoice_payments p JOIN accounts a ON a.id = p.account_id
		WHERE p.invoice_id = $1
		ORDER BY p.created_at
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.AccountID, &p.AccountName, &p.TransactionID,
			&p.Amount, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddPurchase splits p into installments and bills installment i in the
// invoice i cycles after the one the purchase date falls in. The card row
// is locked so concurrent purchases see each other's usage.
func (r *Repository) AddPurchase(ctx context.Context, userID, cardID string, p Purchase) (PurchaseResult, error) {
	today := r.today()
	res := PurchaseResult{PurchaseID: uuid.NewString(), CardID: cardID, Amount: p.Amount}

	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		card, err := cards.LockForUpdate(ctx, tx, userID, cardID)
		if errors.Is(err, cards.ErrNotFound) {
			return ErrCardNotFound
		}
		if err != nil {
			return err
		}
		if err := checkPurchase(card, p.Amount); err != nil {
			return err
		}
		if err := checkCategory(ctx, tx, userID, p.CategoryID); err != nil {
			return err
		}

		parts, err := money.SplitInstallments(p.Amount, p.Installments)
		if err != nil {
			return err
		}
		first := CycleFor(p.Date, card.ClosingDay, card.DueDay)

		for i, amount := range parts {
			cycle := first.Shift(i, card.ClosingDay, card.DueDay)
			invoiceID, err := ensureInvoice(ctx, tx, userID, cardID, cycle)
			if err != nil {
				return err
			}

			info := InstallmentInfo{
				InvoiceID: invoiceID,
				Reference: cycle.Reference,
				Number:    i + 1,
				Amount:    amount,
				Date:      AddMonthsClamped(p.Date, i),
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO transactions (user_id, type, amount, description, date, paid, card_id, invoice_id,
				                          category_id, installment, installments, purchase_id, notes)
				VALUES ($1, 'expense', $2, $3, $4, FALSE, $5, $6, $7, $8, $9, $10, $11)
				RETURNING id::text
			`, userID, amount, p.Description, info.Date, cardID, invoiceID, p.CategoryID,
				i+1, len(parts), res.PurchaseID, p.Notes).Scan(&info.TransactionID); err != nil {
				return fmt.Errorf("insert installment %d: %w", i+1, err)
			}

			if _, err := tx.Exec(ctx, `UPDATE invoices SET total = total + $2, updated_at = NOW() WHERE id = $1`, invoiceID, amount); err != nil {
				return err
			}
			if _, err := refreshStatus(ctx, tx, userID, invoiceID, today); err != nil {
				return err
			}
			res.Installments = append(res.Installments, info)
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	return res, nil
}

// DeletePurchase removes every installment of a purchase. Invoices that
// already received payments are left alone.
func (r *Repository) DeletePurchase(ctx context.Context, userID, purchaseID string) error {
	today := r.today()
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		var cardID string
		err := tx.QueryRow(ctx, `
			SELECT card_id::text FROM transactions
			WHERE purchase_id = $1 AND user_id = $2 AND card_id IS NOT NULL
			LIMIT 1
		`, purchaseID, userID).Scan(&cardID)
		if database.IsNoRows(err) {
			return ErrPurchaseNotFound
		}
		if err != nil {
			return err
		}
		if _, err := cards.LockForUpdate(ctx, tx, userID, cardID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT invoice_id::text, amount FROM transactions
			WHERE purchase_id = $1 AND user_id = $2
			FOR UPDATE
		`, purchaseID, userID)
		if err != nil {
			return err
		}
		totals := map[string]int64{}
		for rows.Next() {
			var invoiceID string
			var amount int64
			if err := rows.Scan(&invoiceID, &amount); err != nil {
				rows.Close()
				return err
			}
			totals[invoiceID] += amount
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		ids := make([]string, 0, len(totals))
		for id := range totals {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			inv, err := lockInvoice(ctx, tx, userID, id, today)
			if err != nil {
				return err
			}
			if inv.PaidAmount > 0 {
				return ErrHasPayments
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE purchase_id = $1 AND user_id = $2`, purchaseID, userID); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(ctx, `UPDATE invoices SET total = total - $2, updated_at = NOW() WHERE id = $1`, id, totals[id]); err != nil {
				return err
			}
			if _, err := refreshStatus(ctx, tx, userID, id, today); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pay debits the account and credits the invoice in one transaction. The
// account may go negative.
func (r *Repository) Pay(ctx context.Context, userID, invoiceID string, in PayInput) (Payment, Invoice, error) {
	today := r.today()
	var pay Payment
	var inv Invoice

	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		var err error
		inv, err = lockInvoice(ctx, tx, userID, invoiceID, today)
		if err != nil {
			return err
		}
		amount, err := payAmount(inv, in.Amount)
		if err != nil {
			return err
		}

		accountID := in.AccountID
		if accountID == "" {
			if accountID, err = defaultAccount(ctx, tx, inv.CardID); err != nil {
				return err
			}
		}
		acc, err := accounts.LockForUpdate(ctx, tx, userID, accountID)
		if errors.Is(err, accounts.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if acc.Archived {
			return ErrAccountArchived
		}

		var categoryID *string
		id, err := categories.FindByName(ctx, tx, userID, categories.TypeExpense, categories.InvoicePaymentName)
		if err != nil {
			return err
		}
		if id != "" {
			categoryID = &id
		}

		description := fmt.Sprintf("Pagamento fatura %s %s", inv.CardName, inv.Reference)
		var txID string
		if err := tx.QueryRow(ctx, `
			INSERT INTO transactions (user_id, type, amount, description, date, paid, account_id, invoice_id, category_id)
			VALUES ($1, 'expense', $2, $3, $4, TRUE, $5, $6, $7)
			RETURNING id::text
		`, userID, amount, description, in.Date, accountID, invoiceID, categoryID).Scan(&txID); err != nil {
			return fmt.Errorf("insert payment transaction: %w", err)
		}
		if err := accounts.ApplyDelta(ctx, tx, userID, accountID, -amount); err != nil {
			return err
		}

		pay = Payment{
			InvoiceID:     invoiceID,
			AccountID:     accountID,
			AccountName:   acc.Name,
			TransactionID: txID,
			Amount:        amount,
			PaidAt:        in.Date,
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO invoice_payments (invoice_id, account_id, transaction_id, amount, paid_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id::text, created_at
		`, invoiceID, accountID, txID, amount, in.Date).Scan(&pay.ID, &pay.CreatedAt); err != nil {
			return fmt.Errorf("insert invoice payment: %w", err)
		}

		next := applyPayment(inv, amount, in.Date)
		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET paid_amount = $2, paid_at = $3, updated_at = NOW() WHERE id = $1
		`, invoiceID, next.PaidAmount, next.PaidAt); err != nil {
			return err
		}
		inv, err = refreshStatus(ctx, tx, userID, invoiceID, today)
		return err
	})
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	return pay, inv, nil
}

// UndoPayment reverses one payment: the account is credited back and the
// payment transaction removed.
func (r *Repository) UndoPayment(ctx context.Context, userID, invoiceID, paymentID string) (Invoice, error) {
	today := r.today()
	var inv Invoice

	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		locked, err := lockInvoice(ctx, tx, userID, invoiceID, today)
		if err != nil {
			return err
		}

		var accountID, txID string
		var amount int64
		err = tx.QueryRow(ctx, `
			SELECT account_id::text, transaction_id::text, amount
			FROM invoice_payments
			WHERE id = $1 AND invoice_id = $2
			FOR UPDATE
		`, paymentID, invoiceID).Scan(&accountID, &txID, &amount)
		if database.IsNoRows(err) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		if _, err := accounts.LockForUpdate(ctx, tx, userID, accountID); err != nil {
			return err
		}
		if err := accounts.ApplyDelta(ctx, tx, userID, accountID, amount); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_payments WHERE id = $1`, paymentID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, txID, userID); err != nil {
			return err
		}
		next := revertPayment(locked, amount)
		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET paid_amount = $2, paid_at = $3, updated_at = NOW() WHERE id = $1
		`, invoiceID, next.PaidAmount, next.PaidAt); err != nil {
			return err
		}

		inv, err = refreshStatus(ctx, tx, userID, invoiceID, today)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// SweepStatuses persists the derived status of every invoice that is not
// paid yet and returns the ones that changed.
func (r *Repository) SweepStatuses(ctx context.Context, today time.Time) ([]StatusChange, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+selectCols+` `+fromJoin+` WHERE i.status <> 'paid'`)
	if err != nil {
		return nil, err
	}
	var changes []StatusChange
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.CardID, &inv.CardName, &inv.UserID, &inv.Reference,
			&inv.ClosingDate, &inv.DueDate, &inv.Total, &inv.PaidAmount, &inv.PaidAt, &inv.Status, &inv.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if ch, ok := sweepChange(inv, today); ok {
			changes = append(changes, ch)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}

	// the status guard skips rows a concurrent write already moved
	batch := &pgx.Batch{}
	for _, ch := range changes {
		batch.Queue(`UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`, ch.InvoiceID, ch.To, ch.From)
	}
	br := r.Pool.SendBatch(ctx, batch)
	defer br.Close()

	applied := changes[:0]
	for _, ch := range changes {
		ct, err := br.Exec()
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() > 0 {
			applied = append(applied, ch)
		}
	}
	return applied, nil
}

func lockInvoice(ctx context.Context, tx pgx.Tx, userID, id string, today time.Time) (Invoice, error) {
	return scan(tx.QueryRow(ctx, `
		SELECT `+selectCols+` `+fromJoin+`
		WHERE i.id = $1 AND i.user_id = $2
		FOR UPDATE OF i
	`, id, userID), today)
}

// refreshStatus persists the derived status, clears paid_at on invoices
// that are no longer paid and syncs the paid flag of the card items.
func refreshStatus(ctx context.Context, tx pgx.Tx, userID, id string, today time.Time) (Invoice, error) {
	inv, err := scan(tx.QueryRow(ctx, `SELECT `+selectCols+` `+fromJoin+` WHERE i.id = $1 AND i.user_id = $2`, id, userID), today)
	if err != nil {
		return Invoice{}, err
	}
	paid := inv.Status == StatusPaid
	if !paid {
		inv.PaidAt = nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_at = CASE WHEN $3 THEN paid_at END
		WHERE id = $1
	`, id, inv.Status, paid); err != nil {
		return Invoice{}, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE transactions SET paid = $2
		WHERE invoice_id = $1 AND card_id IS NOT NULL AND paid <> $2
	`, id, paid); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// ensureInvoice returns the id of the card's invoice for cycle, creating it
// when missing.
func ensureInvoice(ctx context.Context, tx pgx.Tx, userID, cardID string, c Cycle) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices (card_id, user_id, reference, closing_date, due_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (card_id, reference) DO UPDATE SET updated_at = NOW()
		RETURNING id::text
	`, cardID, userID, c.Reference, c.ClosingDate, c.DueDate).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("ensure invoice %s: %w", c.Reference, err)
	}
	return id, nil
}

func defaultAccount(ctx context.Context, tx pgx.Tx, cardID string) (string, error) {
	var id *string
	if err := tx.QueryRow(ctx, `SELECT default_account_id::text FROM cards WHERE id = $1`, cardID).Scan(&id); err != nil {
		return "", err
	}
	if id == nil {
		return "", ErrNoAccount
	}
	return *id, nil
}

func checkCategory(ctx context.Context, tx pgx.Tx, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	var typ string
	err := tx.QueryRow(ctx, `SELECT type FROM categories WHERE id = $1 AND user_id = $2`, *categoryID, userID).Scan(&typ)
	if database.IsNoRows(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}
	if typ != categories.TypeExpense {
		return ErrCategoryMismatch
	}
	return nil
}
