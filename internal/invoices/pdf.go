package invoices

import (
	"fmt"
	"time"

	"github.com/lucasgomesc1993/financas-api/internal/money"
	"github.com/lucasgomesc1993/financas-api/internal/pdfdoc"
)

var statusLabels = map[string]string{
	StatusOpen:          "Aberta",
	StatusClosed:        "Fechada",
	StatusPartiallyPaid: "Parcialmente paga",
	StatusPaid:          "Paga",
	StatusOverdue:       "Vencida",
}

const brDate = "02/01/2006"

// StatementPDF renders the invoice with its items and payments.
func StatementPDF(inv Invoice, generatedAt time.Time) ([]byte, error) {
	doc := pdfdoc.New(
		fmt.Sprintf("Fatura %s", inv.CardName),
		fmt.Sprintf("Referência %s", inv.Reference),
		fmt.Sprintf("Fechamento %s · Vencimento %s", inv.ClosingDate.Format(brDate), inv.DueDate.Format(brDate)),
	)

	doc.Summary(
		[]string{"Total", "Pago", "Restante", "Situação"},
		[]string{money.Format(inv.Total), money.Format(inv.PaidAmount), money.Format(inv.Remaining), statusLabels[inv.Status]},
	)

	doc.Table([]pdfdoc.Column{
		{Title: "Data", Width: 26},
		{Title: "Descrição", Width: 84},
		{Title: "Categoria", Width: 40},
		{Title: "Valor", Width: 36, Align: "R"},
	})
	if len(inv.Items) == 0 {
		doc.Row("", "Nenhuma compra nesta fatura", "", "")
	}
	for _, it := range inv.Items {
		desc := it.Description
		if it.Installment != nil && it.Installments != nil && *it.Installments > 1 {
			desc = fmt.Sprintf("%s (%d/%d)", desc, *it.Installment, *it.Installments)
		}
		cat := ""
		if it.CategoryName != nil {
			cat = *it.CategoryName
		}
		doc.Row(it.Date.Format(brDate), desc, cat, money.Format(it.Amount))
	}

	if len(inv.Payments) > 0 {
		doc.Note("Pagamentos")
		doc.Table([]pdfdoc.Column{
			{Title: "Data", Width: 26},
			{Title: "Conta", Width: 124},
			{Title: "Valor", Width: 36, Align: "R"},
		})
		for _, p := range inv.Payments {
			doc.Row(p.PaidAt.Format(brDate), p.AccountName, money.Format(p.Amount))
		}
	}

	return doc.Bytes("Gerado em " + generatedAt.Format("02/01/2006 15:04"))
}
